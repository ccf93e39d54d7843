// Package accounts implements the credential and session lifecycle for a
// user-account backend: signup, email verification, login, refresh token
// rotation, logout, and password reset.
//
// Tokens:
//   - Access and refresh tokens are HS256 JWTs signed with independent
//     secrets so auth checks need no store round-trip.
//   - Verification and reset tokens are opaque random strings. Their
//     validity is a store lookup plus expiry comparison, which makes them
//     provably single-use: consumption is one conditional UPDATE that
//     clears the token pair, so replays and racing consumers lose.
//
// Sessions:
//   - One live refresh token per account. Login overwrites it, Refresh
//     rotates it (the old value dies with the update), Logout clears it.
//
// The Manager exposes the lifecycle as plain function calls returning
// structured errors; HTTP concerns stay with the embedding application.
package accounts

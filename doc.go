// Package authd implements the account trust state machine behind the
// DevTeamer authentication service: registration, email verification,
// credential login gated by an emailed second-factor link, and signed
// access-token sessions.
//
// The package is the public surface. [Engine] orchestrates the flows and is
// safe for concurrent use after construction through [NewEngine]. Redis-backed
// coordination (single-use action tokens, send cooldowns) lives under
// internal/ and is never exported. Token signing is in the jwt subpackage,
// password hashing in the password subpackage, and the HTTP surface in
// httpapi.
//
// Persistent user records are reached through the [UserStore] contract;
// postgres provides the production implementation and [MemStore] a test
// double. Outbound email goes through [MailSender].
package authd

// Package crypt implements transparent symmetric encryption of group
// channel messages.
//
// Design goals:
//   - Classic block ciphers (AES, DES, Blowfish, SM4, ...) in CBC, OFB or
//     CFB mode with a fresh random IV for every message
//   - Cipher suites selected by "name/mode/padding" strings, ECB refused
//   - Reusable cipher state and buffered randomness through internal
//     pools, so steady-state traffic neither blocks nor rebuilds key
//     schedules per message
//   - Pluggable providers for cipher algorithms outside the builtin set
package crypt

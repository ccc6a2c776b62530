// Package channel provides the interceptor pipeline that group messages
// travel through.
//
// Outbound messages enter at the head of the chain and move stage by stage
// toward the transport; inbound messages enter at the tail and move back
// toward the application. Each stage may inspect or rewrite the message
// body in place before handing it on. EncryptInterceptor uses this to
// replace every outbound body with "IV || ciphertext" and every inbound
// body with the recovered plaintext, invisibly to the stages around it.
package channel

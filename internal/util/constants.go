package util

// ContextUserKey holds the *Claims set by the auth middleware.
const ContextUserKey = "user"

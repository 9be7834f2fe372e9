package auth

import "crypto/rand"

// randRead is a seam for tests that need the random source to fail.
var randRead = rand.Read

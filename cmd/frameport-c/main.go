// Command frameport-c is the build target for the shared C library:
//
//	go build -buildmode=c-shared -o libframeport.so ./cmd/frameport-c
//
// The exported symbols live in the capi package; this main is never run.
package main

import (
	_ "github.com/frameport/frameport/capi"
)

func main() {}

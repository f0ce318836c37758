// Command sss-shared is built as a C shared library:
//
//	go build -buildmode=c-shared -o libsss_shared.so ./cmd/sss-shared
//
// Configuration is read from .env and the environment on first use; see
// internal/config. include/sss_shared.h declares the exports.
package main

/*
#include <stdlib.h>
*/
import "C"

import (
	"log"
	"os"
	"unsafe"

	"sss-shared/internal/bridge"
)

var logger = log.New(os.Stderr, "[sss-shared] ", log.LstdFlags)

var binding = bridge.New(bridge.EnvFactory(logger), logger)

//export create_token
func create_token(uri, name *C.char, decimals C.uchar, signatureOut, mintAddressOut *C.char, signatureCapacity, mintAddressCapacity C.int) C.int {
	return C.int(binding.CreateToken(
		goString(uri),
		goString(name),
		uint8(decimals),
		buffer(signatureOut, signatureCapacity),
		buffer(mintAddressOut, mintAddressCapacity),
	))
}

//export mint_token_ffi
func mint_token_ffi(mintAddress, tokenOwner *C.char, amount C.ulonglong, signatureOut *C.char, signatureCapacity C.int) C.int {
	return C.int(binding.MintTokens(
		goString(mintAddress),
		goString(tokenOwner),
		uint64(amount),
		buffer(signatureOut, signatureCapacity),
	))
}

//export free_string
func free_string(s *C.char) {
	if s != nil {
		C.free(unsafe.Pointer(s))
	}
}

//export last_error_message
func last_error_message() *C.char {
	err := binding.LastError()
	if err == nil {
		return nil
	}
	return C.CString(err.Error())
}

//export payer_address
func payer_address() *C.char {
	addr, err := binding.PayerAddress()
	if err != nil {
		return nil
	}
	return C.CString(addr)
}

// goString copies a C string; NULL maps to nil.
func goString(p *C.char) *string {
	if p == nil {
		return nil
	}
	s := C.GoString(p)
	return &s
}

// buffer views a caller-owned output buffer; NULL maps to nil and a
// negative capacity to an empty buffer.
func buffer(p *C.char, capacity C.int) []byte {
	if p == nil {
		return nil
	}
	if capacity < 0 {
		capacity = 0
	}
	return unsafe.Slice((*byte)(unsafe.Pointer(p)), int(capacity))
}

func main() {}

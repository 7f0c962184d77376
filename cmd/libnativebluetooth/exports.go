//go:build cgo

package main

/*
#include <stdbool.h>
#include <stdlib.h>

typedef void (*host_callback)(const char *method, const char *message);

static inline void invoke_host_callback(host_callback cb, const char *method, const char *message) {
	cb(method, message);
}
*/
import "C"

import (
	"unsafe"

	"go.uber.org/zap"

	"github.com/blocinbloc/native-bluetooth/api/logging"
)

// callbackHost calls a C host callback. The strings passed to the
// callback are only valid for the duration of the call.
type callbackHost struct {
	callback C.host_callback
}

func (h callbackHost) SendEventToHost(methodName, message string) {
	method := C.CString(methodName)
	defer C.free(unsafe.Pointer(method))

	payload := C.CString(message)
	defer C.free(unsafe.Pointer(payload))

	C.invoke_host_callback(h.callback, method, payload)
}

//export RegisterHostCallback
func RegisterHostCallback(callback C.host_callback) {
	if callback == nil {
		lib.host.set(nil)
		return
	}

	lib.host.set(callbackHost{callback: callback})
}

//export Initialize
func Initialize(configPath *C.char) C.bool {
	var path string
	if configPath != nil {
		path = C.GoString(configPath)
	}

	if err := lib.initialize(path); err != nil {
		logging.Logger().Error("Cannot initialize bridge", zap.Error(err))
		return C.bool(false)
	}

	return C.bool(true)
}

// GetDevices returns the accessories as a JSON array.
// The caller owns the returned string and must release it with FreeString.
//
//export GetDevices
func GetDevices() *C.char {
	return C.CString(lib.getDevices())
}

//export FreeString
func FreeString(s *C.char) {
	C.free(unsafe.Pointer(s))
}

//export SetupController
func SetupController(connectionID *C.char) C.bool {
	if connectionID == nil {
		return C.bool(lib.setupController(""))
	}

	return C.bool(lib.setupController(C.GoString(connectionID)))
}

//export OpenSession
func OpenSession() C.bool {
	return C.bool(lib.openSession())
}

//export CloseSession
func CloseSession() {
	lib.closeSession()
}

//export ApplicationWillEnterForeground
func ApplicationWillEnterForeground() C.bool {
	return C.bool(lib.enterForeground())
}

//export Shutdown
func Shutdown() {
	if err := lib.shutdown(); err != nil {
		logging.Logger().Warn("Cannot shut down bridge", zap.Error(err))
	}
}

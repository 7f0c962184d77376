//go:build linux

package linux

import (
	"context"
	"io"
	"os"

	"golang.org/x/sys/unix"

	"github.com/blocinbloc/native-bluetooth/api/bluetooth"
)

// dialRFCOMM connects a stream socket to the RFCOMM channel of the device.
// The returned file uses the runtime poller, so closing it unblocks readers.
func dialRFCOMM(ctx context.Context, address bluetooth.MacAddress, channel uint8) (io.ReadWriteCloser, error) {
	fd, err := unix.Socket(unix.AF_BLUETOOTH, unix.SOCK_STREAM|unix.SOCK_CLOEXEC, unix.BTPROTO_RFCOMM)
	if err != nil {
		return nil, os.NewSyscallError("socket", err)
	}

	// The kernel expects the address in little-endian order.
	sockaddr := &unix.SockaddrRFCOMM{Addr: address.Reversed(), Channel: channel}

	connected := make(chan error, 1)
	go func() {
		connected <- unix.Connect(fd, sockaddr)
	}()

	select {
	case err = <-connected:
	case <-ctx.Done():
		// Shutdown wakes a connect that is still in progress.
		_ = unix.Shutdown(fd, unix.SHUT_RDWR)
		<-connected
		err = ctx.Err()
	}

	if err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("connect", err)
	}

	if err := unix.SetNonblock(fd, true); err != nil {
		unix.Close(fd)
		return nil, os.NewSyscallError("setnonblock", err)
	}

	return os.NewFile(uintptr(fd), "rfcomm:"+address.String()), nil
}

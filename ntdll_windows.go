//go:build windows

package netpoll

import (
	"unsafe"

	"github.com/pkg/errors"
	"golang.org/x/sys/windows"
)

// The AFD device has no Win32 symlink, so it cannot be reached through
// CreateFile; it must be opened through the NT namespace directly with
// NtCreateFile, and driven with NtDeviceIoControlFile instead of
// DeviceIoControl so the IOCP-bound OVERLAPPED is honored the same way it
// is for ordinary sockets. Neither is exposed by golang.org/x/sys/windows,
// so both are resolved from ntdll.dll the way momentics-hioload-ws's
// reactor_windows.go resolves the completion-port procs it needs beyond
// what x/sys/windows wraps.
var (
	modntdll              = windows.NewLazySystemDLL("ntdll.dll")
	procNtCreateFile      = modntdll.NewProc("NtCreateFile")
	procNtDeviceIoControl = modntdll.NewProc("NtDeviceIoControlFile")
)

type unicodeString struct {
	Length        uint16
	MaximumLength uint16
	_             [2]byte // padding to pointer alignment on amd64
	Buffer        *uint16
}

type objectAttributes struct {
	Length                   uint32
	RootDirectory            windows.Handle
	ObjectName               *unicodeString
	Attributes               uint32
	SecurityDescriptor       uintptr
	SecurityQualityOfService uintptr
}

type ioStatusBlock struct {
	Status      int32
	Information uintptr
}

const objAttrCaseInsensitive = 0x00000040

// openAfdDevice opens a fresh handle into the AFD device and associates it
// with iocp, per spec.md §4.7 step 1. The path suffix after "\Device\Afd\"
// is not inspected by the driver; any name is accepted, so a
// module-specific tail keeps this handle identifiable in tools like
// Sysinternals WinObj.
func openAfdDevice(iocp windows.Handle) (windows.Handle, error) {
	pathUTF16, err := windows.UTF16PtrFromString(`\Device\Afd\Netpoll`)
	if err != nil {
		return 0, errors.Wrap(err, "netpoll: encode AFD device path")
	}
	name := unicodeString{
		Length:        uint16(len(`\Device\Afd\Netpoll`) * 2),
		MaximumLength: uint16(len(`\Device\Afd\Netpoll`)*2 + 2),
		Buffer:        pathUTF16,
	}
	attrs := objectAttributes{
		ObjectName: &name,
		Attributes: objAttrCaseInsensitive,
	}
	attrs.Length = uint32(unsafe.Sizeof(attrs))

	var handle windows.Handle
	var iosb ioStatusBlock

	const (
		genericRead  = 0x80000000
		genericWrite = 0x40000000
		fileShareAll = 0x1 | 0x2 | 0x4
		fileOpen     = 1
	)

	status, _, _ := procNtCreateFile.Call(
		uintptr(unsafe.Pointer(&handle)),
		uintptr(genericRead|genericWrite),
		uintptr(unsafe.Pointer(&attrs)),
		uintptr(unsafe.Pointer(&iosb)),
		0,
		0,
		uintptr(fileShareAll),
		uintptr(fileOpen),
		0,
		0,
		0,
	)
	if status != 0 {
		return 0, errors.Errorf("netpoll: NtCreateFile(AFD) failed, NTSTATUS=0x%x", status)
	}

	if _, err := windows.CreateIoCompletionPort(handle, iocp, 0, 0); err != nil {
		_ = windows.CloseHandle(handle)
		return 0, errors.Wrap(err, "netpoll: associate AFD device with IOCP")
	}
	return handle, nil
}

// ntDeviceIoControlFile submits IOCTL_AFD_POLL through the native NT entry
// point rather than DeviceIoControl, matching how wepoll drives AFD: the
// Win32 wrapper does extra bookkeeping around cancellation that conflicts
// with owning the OVERLAPPED lifetime ourselves.
func ntDeviceIoControlFile(handle windows.Handle, overlapped *windows.Overlapped, ioctl uint32, in unsafe.Pointer, inLen uint32, out unsafe.Pointer, outLen uint32) error {
	var iosb ioStatusBlock
	status, _, _ := procNtDeviceIoControl.Call(
		uintptr(handle),
		0,
		0,
		uintptr(unsafe.Pointer(overlapped)),
		uintptr(unsafe.Pointer(&iosb)),
		uintptr(ioctl),
		uintptr(in),
		uintptr(inLen),
		uintptr(out),
		uintptr(outLen),
	)
	const statusPending = 0x00000103
	if status != 0 && uint32(status) != statusPending {
		return errors.Errorf("netpoll: NtDeviceIoControlFile(IOCTL_AFD_POLL) failed, NTSTATUS=0x%x", status)
	}
	return nil
}

// resolveBaseHandle unwraps a layered service provider (LSP) socket down to
// the base handle AFD actually operates on, via SIO_BASE_HANDLE. Most
// sockets are already a base handle and this is a no-op; when it fails
// (a misbehaving LSP hides the base handle) registration falls back to the
// original handle and logs a warning rather than refusing to register, per
// spec.md §9's resolution of that open question.
func resolveBaseHandle(handle windows.Handle) (windows.Handle, error) {
	const sioBaseHandle = windows.IOC_OUT | windows.IOC_WS2 | 34
	var base windows.Handle
	var bytesReturned uint32
	err := windows.WSAIoctl(
		handle,
		sioBaseHandle,
		nil, 0,
		(*byte)(unsafe.Pointer(&base)), uint32(unsafe.Sizeof(base)),
		&bytesReturned,
		nil, 0,
	)
	if err != nil {
		log.Warn().Err(err).Msg("netpoll: SIO_BASE_HANDLE failed, registering LSP handle directly")
		return handle, nil
	}
	return base, nil
}

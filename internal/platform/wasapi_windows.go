//go:build windows

package platform

import (
	"errors"
	"runtime"
	"strings"
	"syscall"
	"unsafe"

	"github.com/breeze-rmm/micwatch/pkg/models"
	"github.com/go-ole/go-ole"
	"golang.org/x/sys/windows"
)

var (
	clsidMMDeviceEnumerator   = ole.NewGUID("{BCDE0395-E52F-467C-8E3D-C4579291692E}")
	iidIMMDeviceEnumerator    = ole.NewGUID("{A95664D2-9614-4F35-A746-DE8DB63617E6}")
	iidIAudioSessionManager2  = ole.NewGUID("{77AA99A0-1BD6-484F-8BC7-2C654C9A9B6F}")
	iidIAudioSessionControl2  = ole.NewGUID("{BFB7FF88-7239-4FC9-8FA2-07C950BE9C6D}")
	iidIAudioMeterInformation = ole.NewGUID("{C02216F6-8C67-4B5B-9D00-D008E73E0064}")
	iidISimpleAudioVolume     = ole.NewGUID("{87CE5498-68D6-44E5-9215-6DA47EF883D8}")
	iidIAudioClient           = ole.NewGUID("{1CB9AD4C-DBFA-4C32-B178-C2F568A703B2}")

	modOle32             = windows.NewLazySystemDLL("ole32.dll")
	procPropVariantClear = modOle32.NewProc("PropVariantClear")
)

const (
	eRender  = 0
	eCapture = 1

	deviceStateActive       = 0x00000001
	audioSessionStateActive = 1
	clsctxAll               = 0x17
	stgmRead                = 0
	vtLPWSTR                = 31
	sFalse                  = 1
)

// vtable slots, counted from the start of IUnknown
const (
	slotQueryInterface = 0

	slotEnumAudioEndpoints = 3 // IMMDeviceEnumerator

	slotCollectionGetCount = 3 // IMMDeviceCollection
	slotCollectionItem     = 4

	slotDeviceActivate          = 3 // IMMDevice
	slotDeviceOpenPropertyStore = 4

	slotPropertyStoreGetValue = 5 // IPropertyStore

	slotGetSessionEnumerator = 5 // IAudioSessionManager2

	slotSessionEnumGetCount   = 3 // IAudioSessionEnumerator
	slotSessionEnumGetSession = 4

	slotSessionGetState     = 3  // IAudioSessionControl
	slotSessionGetProcessID = 14 // IAudioSessionControl2

	slotGetMasterVolume = 4 // ISimpleAudioVolume
	slotGetMute         = 6

	slotGetPeakValue = 3 // IAudioMeterInformation

	slotGetCurrentPadding = 6 // IAudioClient
)

type propertyKey struct {
	fmtid ole.GUID
	pid   uint32
}

var (
	pkeyDeviceDeviceDesc   = propertyKey{fmtid: *ole.NewGUID("{A45C254E-DF1C-4EFD-8020-67D146A850E0}"), pid: 2}
	pkeyDeviceFriendlyName = propertyKey{fmtid: *ole.NewGUID("{A45C254E-DF1C-4EFD-8020-67D146A850E0}"), pid: 14}
)

// propVariant mirrors PROPVARIANT for the pointer-valued variants read here.
type propVariant struct {
	vt       uint16
	reserved [3]uint16
	val      uintptr
	pad      uintptr
}

type audioSession struct {
	pid       uint32
	state     uint32
	volume    float32
	muted     bool
	hasVolume bool
}

func comCall(obj *ole.IUnknown, slot int, args ...uintptr) error {
	vtbl := (*[32]uintptr)(unsafe.Pointer(obj.RawVTable))
	callArgs := make([]uintptr, 0, len(args)+1)
	callArgs = append(callArgs, uintptr(unsafe.Pointer(obj)))
	callArgs = append(callArgs, args...)
	hr, _, _ := syscall.SyscallN(vtbl[slot], callArgs...)
	if int32(hr) < 0 {
		return ole.NewError(hr)
	}
	return nil
}

func queryInterface(obj *ole.IUnknown, iid *ole.GUID) (*ole.IUnknown, error) {
	var out *ole.IUnknown
	if err := comCall(obj, slotQueryInterface, uintptr(unsafe.Pointer(iid)), uintptr(unsafe.Pointer(&out))); err != nil {
		return nil, err
	}
	return out, nil
}

func activate(dev *ole.IUnknown, iid *ole.GUID) (*ole.IUnknown, error) {
	var out *ole.IUnknown
	if err := comCall(dev, slotDeviceActivate, uintptr(unsafe.Pointer(iid)), clsctxAll, 0, uintptr(unsafe.Pointer(&out))); err != nil {
		return nil, err
	}
	return out, nil
}

// hresult extracts the HRESULT carried by an ole error.
func hresult(err error) int {
	var oleErr *ole.OleError
	if errors.As(err, &oleErr) {
		return int(int32(oleErr.Code()))
	}
	return models.CodeUnknown
}

func enumerationError(err error, msg string) *models.EnumerationError {
	return &models.EnumerationError{Code: hresult(err), Domain: models.EnumerationDomain, Message: msg}
}

// comInit initializes COM on the current (locked) OS thread.
func comInit() error {
	if err := ole.CoInitializeEx(0, ole.COINIT_MULTITHREADED); err != nil {
		var oleErr *ole.OleError
		if errors.As(err, &oleErr) && oleErr.Code() == sFalse {
			return nil
		}
		return err
	}
	return nil
}

// withCOM runs fn on a locked OS thread with COM initialized.
func withCOM(fn func() error) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	if err := comInit(); err != nil {
		return enumerationError(err, "Failed to initialize COM")
	}
	defer ole.CoUninitialize()

	return fn()
}

// forEachDevice visits every active endpoint of the given data flow.
func forEachDevice(flow uintptr, fn func(dev *ole.IUnknown)) *models.EnumerationError {
	enumerator, err := ole.CreateInstance(clsidMMDeviceEnumerator, iidIMMDeviceEnumerator)
	if err != nil {
		return enumerationError(err, "Failed to create device enumerator")
	}
	defer enumerator.Release()

	var collection *ole.IUnknown
	if err := comCall(enumerator, slotEnumAudioEndpoints, flow, deviceStateActive, uintptr(unsafe.Pointer(&collection))); err != nil {
		return enumerationError(err, "Failed to enumerate audio endpoints")
	}
	defer collection.Release()

	var count uint32
	if err := comCall(collection, slotCollectionGetCount, uintptr(unsafe.Pointer(&count))); err != nil {
		return enumerationError(err, "Failed to count audio endpoints")
	}

	for i := uint32(0); i < count; i++ {
		var dev *ole.IUnknown
		if err := comCall(collection, slotCollectionItem, uintptr(i), uintptr(unsafe.Pointer(&dev))); err != nil {
			continue
		}
		fn(dev)
		dev.Release()
	}
	return nil
}

// deviceSessions lists the audio sessions on a device. Failures yield an
// empty list; a device we cannot inspect has no visible sessions.
func deviceSessions(dev *ole.IUnknown) []audioSession {
	manager, err := activate(dev, iidIAudioSessionManager2)
	if err != nil {
		return nil
	}
	defer manager.Release()

	var sessionEnum *ole.IUnknown
	if err := comCall(manager, slotGetSessionEnumerator, uintptr(unsafe.Pointer(&sessionEnum))); err != nil {
		return nil
	}
	defer sessionEnum.Release()

	var count int32
	if err := comCall(sessionEnum, slotSessionEnumGetCount, uintptr(unsafe.Pointer(&count))); err != nil {
		return nil
	}

	sessions := make([]audioSession, 0, count)
	for i := int32(0); i < count; i++ {
		var control *ole.IUnknown
		if err := comCall(sessionEnum, slotSessionEnumGetSession, uintptr(i), uintptr(unsafe.Pointer(&control))); err != nil {
			continue
		}

		var s audioSession
		_ = comCall(control, slotSessionGetState, uintptr(unsafe.Pointer(&s.state)))

		if control2, err := queryInterface(control, iidIAudioSessionControl2); err == nil {
			_ = comCall(control2, slotSessionGetProcessID, uintptr(unsafe.Pointer(&s.pid)))
			control2.Release()
		}

		if volume, err := queryInterface(control, iidISimpleAudioVolume); err == nil {
			var muted int32
			if comCall(volume, slotGetMasterVolume, uintptr(unsafe.Pointer(&s.volume))) == nil &&
				comCall(volume, slotGetMute, uintptr(unsafe.Pointer(&muted))) == nil {
				s.hasVolume = true
				s.muted = muted != 0
			}
			volume.Release()
		}

		control.Release()
		sessions = append(sessions, s)
	}
	return sessions
}

// deviceProperty reads a string property from a device's property store.
func deviceProperty(dev *ole.IUnknown, key propertyKey) (string, bool) {
	var store *ole.IUnknown
	if err := comCall(dev, slotDeviceOpenPropertyStore, stgmRead, uintptr(unsafe.Pointer(&store))); err != nil {
		return "", false
	}
	defer store.Release()

	var pv propVariant
	if err := comCall(store, slotPropertyStoreGetValue, uintptr(unsafe.Pointer(&key)), uintptr(unsafe.Pointer(&pv))); err != nil {
		return "", false
	}
	defer procPropVariantClear.Call(uintptr(unsafe.Pointer(&pv)))

	if pv.vt != vtLPWSTR || pv.val == 0 {
		return "", false
	}
	return windows.UTF16PtrToString((*uint16)(unsafe.Pointer(pv.val))), true
}

func isBluetoothDevice(dev *ole.IUnknown) bool {
	desc, ok := deviceProperty(dev, pkeyDeviceDeviceDesc)
	if !ok {
		return false
	}
	return strings.Contains(desc, "Bluetooth") || strings.Contains(desc, "Wireless")
}

// hasActiveAudio applies the detection tiers in order: metered peak, buffered
// padding, an active unmuted session with volume, and for Bluetooth devices
// any session at all.
func hasActiveAudio(dev *ole.IUnknown, sessions []audioSession) bool {
	if meter, err := activate(dev, iidIAudioMeterInformation); err == nil {
		var peak float32
		err := comCall(meter, slotGetPeakValue, uintptr(unsafe.Pointer(&peak)))
		meter.Release()
		if err == nil && peak > 0 {
			return true
		}
	}

	if client, err := activate(dev, iidIAudioClient); err == nil {
		var padding uint32
		err := comCall(client, slotGetCurrentPadding, uintptr(unsafe.Pointer(&padding)))
		client.Release()
		if err == nil && padding > 0 {
			return true
		}
	}

	for _, s := range sessions {
		if s.state == audioSessionStateActive && s.hasVolume && s.volume > 0 && !s.muted {
			return true
		}
	}

	return len(sessions) > 0 && isBluetoothDevice(dev)
}

// captureProcesses returns executable paths of processes with an active
// session on a capture device that shows activity. Requires COM.
func captureProcesses() ([]string, *models.EnumerationError) {
	var paths []string
	err := forEachDevice(eCapture, func(dev *ole.IUnknown) {
		sessions := deviceSessions(dev)
		if !hasActiveAudio(dev, sessions) {
			return
		}
		for _, s := range sessions {
			if s.pid != 0 && s.state == audioSessionStateActive {
				paths = append(paths, processPath(int32(s.pid)))
			}
		}
	})
	return paths, err
}

// renderSessions returns active, unmuted render sessions with device names.
// Requires COM.
func renderSessions() ([]models.RenderProcess, *models.EnumerationError) {
	var out []models.RenderProcess
	err := forEachDevice(eRender, func(dev *ole.IUnknown) {
		device, ok := deviceProperty(dev, pkeyDeviceFriendlyName)
		if !ok {
			device = "Unknown Device"
		}
		for _, s := range deviceSessions(dev) {
			if s.pid == 0 || s.state != audioSessionStateActive || !s.hasVolume || s.muted {
				continue
			}
			out = append(out, models.RenderProcess{
				PID:    int32(s.pid),
				Name:   processName(int32(s.pid)),
				Device: device,
				Active: true,
			})
		}
	})
	return out, err
}

// captureActivity reports whether any capture endpoint shows activity and
// how many active capture endpoints exist. Requires COM.
func captureActivity() (active bool, devices int, err *models.EnumerationError) {
	err = forEachDevice(eCapture, func(dev *ole.IUnknown) {
		devices++
		if !active && hasActiveAudio(dev, deviceSessions(dev)) {
			active = true
		}
	})
	return active, devices, err
}

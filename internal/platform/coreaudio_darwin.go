//go:build darwin && cgo

package platform

/*
#cgo CFLAGS: -x objective-c -fobjc-arc
#cgo LDFLAGS: -framework CoreAudio -framework CoreFoundation -framework AVFoundation -framework AppKit -framework Foundation
#include <CoreAudio/CoreAudio.h>
#include <CoreFoundation/CoreFoundation.h>
#import <AVFoundation/AVFoundation.h>
#import <AppKit/AppKit.h>

// Process object selectors (macOS 14.2+), spelled out so older SDKs build.
#define MW_PROCESS_OBJECT_LIST    'prs#'
#define MW_PROCESS_PID            'ppid'
#define MW_PROCESS_BUNDLE_ID      'pbid'
#define MW_PROCESS_RUNNING_INPUT  'piri'
#define MW_PROCESS_RUNNING_OUTPUT 'piro'

static int mw_process_count(unsigned int *count) {
    AudioObjectPropertyAddress addr = { MW_PROCESS_OBJECT_LIST, kAudioObjectPropertyScopeGlobal, 0 };
    UInt32 size = 0;
    OSStatus st = AudioObjectGetPropertyDataSize(kAudioObjectSystemObject, &addr, 0, NULL, &size);
    if (st != noErr) return (int)st;
    *count = size / sizeof(AudioObjectID);
    return 0;
}

static int mw_process_list(unsigned int *out, unsigned int capacity, unsigned int *count) {
    AudioObjectPropertyAddress addr = { MW_PROCESS_OBJECT_LIST, kAudioObjectPropertyScopeGlobal, 0 };
    UInt32 size = capacity * sizeof(AudioObjectID);
    OSStatus st = AudioObjectGetPropertyData(kAudioObjectSystemObject, &addr, 0, NULL, &size, out);
    if (st != noErr) return (int)st;
    *count = size / sizeof(AudioObjectID);
    return 0;
}

static int mw_process_flag(unsigned int obj, unsigned int selector) {
    AudioObjectPropertyAddress addr = { selector, kAudioObjectPropertyScopeGlobal, 0 };
    UInt32 value = 0;
    UInt32 size = sizeof(value);
    if (AudioObjectGetPropertyData(obj, &addr, 0, NULL, &size, &value) != noErr) return -1;
    return value ? 1 : 0;
}

static int mw_process_pid(unsigned int obj) {
    AudioObjectPropertyAddress addr = { MW_PROCESS_PID, kAudioObjectPropertyScopeGlobal, 0 };
    pid_t pid = -1;
    UInt32 size = sizeof(pid);
    if (AudioObjectGetPropertyData(obj, &addr, 0, NULL, &size, &pid) != noErr) return -1;
    return (int)pid;
}

static int mw_string_property(unsigned int obj, unsigned int selector, char *buf, int bufsize) {
    AudioObjectPropertyAddress addr = { selector, kAudioObjectPropertyScopeGlobal, 0 };
    CFStringRef value = NULL;
    UInt32 size = sizeof(value);
    if (AudioObjectGetPropertyData(obj, &addr, 0, NULL, &size, &value) != noErr || value == NULL) return 0;
    Boolean ok = CFStringGetCString(value, buf, bufsize, kCFStringEncodingUTF8);
    CFRelease(value);
    return ok ? 1 : 0;
}

static int mw_default_device(unsigned int selector, unsigned int *device) {
    AudioObjectPropertyAddress addr = { selector, kAudioObjectPropertyScopeGlobal, 0 };
    AudioDeviceID dev = kAudioObjectUnknown;
    UInt32 size = sizeof(dev);
    OSStatus st = AudioObjectGetPropertyData(kAudioObjectSystemObject, &addr, 0, NULL, &size, &dev);
    if (st != noErr) return (int)st;
    *device = dev;
    return 0;
}

static int mw_input_running(unsigned int *running) {
    unsigned int dev = kAudioObjectUnknown;
    int st = mw_default_device(kAudioHardwarePropertyDefaultInputDevice, &dev);
    if (st != 0) return st;
    *running = 0;
    if (dev == kAudioObjectUnknown) return 0;
    AudioObjectPropertyAddress addr = { kAudioDevicePropertyDeviceIsRunningSomewhere, kAudioObjectPropertyScopeGlobal, 0 };
    UInt32 value = 0;
    UInt32 size = sizeof(value);
    OSStatus err = AudioObjectGetPropertyData(dev, &addr, 0, NULL, &size, &value);
    if (err != noErr) return (int)err;
    *running = value;
    return 0;
}

// 0 not determined, 1 restricted, 2 denied, 3 authorized
static int mw_mic_permission(void) {
    return (int)[AVCaptureDevice authorizationStatusForMediaType:AVMediaTypeAudio];
}

static int mw_activate(void) {
    return [[NSRunningApplication currentApplication] activateWithOptions:NSApplicationActivateIgnoringOtherApps] ? 1 : 0;
}
*/
import "C"

import (
	"github.com/breeze-rmm/micwatch/pkg/models"
)

// osStatusDomain is the domain CoreAudio failures are reported under.
const osStatusDomain = "NSOSStatusErrorDomain"

const (
	permissionNotDetermined = 0
	permissionRestricted    = 1
	permissionDenied        = 2
)

// codePermissionDenied marks denied/restricted microphone access; it is a
// hard error, distinct from the informational code.
const codePermissionDenied = 2

// processFlag is a CoreAudio process object property selector.
type processFlag C.uint

const (
	selRunningInput  processFlag = 'p'<<24 | 'i'<<16 | 'r'<<8 | 'i'
	selRunningOutput processFlag = 'p'<<24 | 'i'<<16 | 'r'<<8 | 'o'
)

type audioProcess struct {
	pid      int32
	bundleID string
}

func osStatusError(st C.int, msg string) *models.EnumerationError {
	return &models.EnumerationError{Code: int(st), Domain: osStatusDomain, Message: msg}
}

// audioProcesses lists CoreAudio process objects whose flag selector is set.
func audioProcesses(selector processFlag) ([]audioProcess, *models.EnumerationError) {
	var n C.uint
	if st := C.mw_process_count(&n); st != 0 {
		return nil, osStatusError(st, "Failed to read audio process list")
	}
	if n == 0 {
		return nil, nil
	}

	ids := make([]C.uint, n)
	if st := C.mw_process_list(&ids[0], n, &n); st != 0 {
		return nil, osStatusError(st, "Failed to read audio process list")
	}

	var out []audioProcess
	buf := make([]C.char, 512)
	for _, id := range ids[:n] {
		if C.mw_process_flag(id, C.uint(selector)) != 1 {
			continue
		}
		p := audioProcess{pid: int32(C.mw_process_pid(id))}
		if C.mw_string_property(id, C.MW_PROCESS_BUNDLE_ID, &buf[0], C.int(len(buf))) == 1 {
			p.bundleID = C.GoString(&buf[0])
		}
		out = append(out, p)
	}
	return out, nil
}

// descriptor prefers the bundle id and falls back to the process name.
func (p audioProcess) descriptor() string {
	if p.bundleID != "" {
		return p.bundleID
	}
	if p.pid > 0 {
		return processName(p.pid)
	}
	return unknownProcess
}

func defaultOutputName() string {
	var dev C.uint
	if C.mw_default_device(C.kAudioHardwarePropertyDefaultOutputDevice, &dev) != 0 || dev == C.kAudioObjectUnknown {
		return "Unknown Device"
	}
	buf := make([]C.char, 256)
	if C.mw_string_property(dev, C.kAudioObjectPropertyName, &buf[0], C.int(len(buf))) != 1 {
		return "Unknown Device"
	}
	return C.GoString(&buf[0])
}

// probeMicrophone checks permission first, then whether the default input
// device is running in any process.
func probeMicrophone() (bool, *models.MonitorError) {
	switch C.mw_mic_permission() {
	case permissionNotDetermined:
		return false, models.NewInfoError("Microphone permission not determined")
	case permissionRestricted, permissionDenied:
		return false, &models.MonitorError{
			Code:    codePermissionDenied,
			Domain:  models.ErrorDomain,
			Message: "Microphone access denied",
		}
	}

	var running C.uint
	if st := C.mw_input_running(&running); st != 0 {
		return false, &models.MonitorError{Code: int(st), Domain: osStatusDomain, Message: "Failed to read input device state"}
	}
	return running != 0, nil
}

func activateCurrentApplication() bool {
	return C.mw_activate() == 1
}

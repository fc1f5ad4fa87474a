// Package plist builds and writes the Info.plist of a macOS application
// bundle as an XML property list with a fixed key set and order.
package plist

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	hplist "howett.net/plist"
)

// InfoPlist is the bundle's property list. Field order is the key order in
// the serialised document; do not reorder fields.
type InfoPlist struct {
	CFBundleDevelopmentRegion            string   `plist:"CFBundleDevelopmentRegion"`
	CFBundleExecutable                   string   `plist:"CFBundleExecutable"`
	CFBundleIdentifier                   string   `plist:"CFBundleIdentifier"`
	CFBundleInfoDictionaryVersion        string   `plist:"CFBundleInfoDictionaryVersion"`
	CFBundleName                         string   `plist:"CFBundleName"`
	CFBundlePackageType                  string   `plist:"CFBundlePackageType"`
	CFBundleShortVersionString           string   `plist:"CFBundleShortVersionString"`
	CFBundleSupportedPlatforms           []string `plist:"CFBundleSupportedPlatforms"`
	CFBundleVersion                      string   `plist:"CFBundleVersion"`
	CFBundleIconFile                     string   `plist:"CFBundleIconFile"`
	NSHighResolutionCapable              bool     `plist:"NSHighResolutionCapable"`
	NSMainNibFile                        string   `plist:"NSMainNibFile"`
	NSSupportsAutomaticGraphicsSwitching bool     `plist:"NSSupportsAutomaticGraphicsSwitching"`
	CFBundleDisplayName                  string   `plist:"CFBundleDisplayName"`
	NSRequiresAquaSystemAppearance       bool     `plist:"NSRequiresAquaSystemAppearance"`

	NSCameraUsageDescription            string `plist:"NSCameraUsageDescription"`
	NSMicrophoneUsageDescription        string `plist:"NSMicrophoneUsageDescription"`
	NSLocationWhenInUseUsageDescription string `plist:"NSLocationWhenInUseUsageDescription"`
	NSContactsUsageDescription          string `plist:"NSContactsUsageDescription"`
	NSCalendarsUsageDescription         string `plist:"NSCalendarsUsageDescription"`
	NSRemindersUsageDescription         string `plist:"NSRemindersUsageDescription"`
	NSPhotoLibraryUsageDescription      string `plist:"NSPhotoLibraryUsageDescription"`
	NSAppleEventsUsageDescription       string `plist:"NSAppleEventsUsageDescription"`
	NSDesktopFolderUsageDescription     string `plist:"NSDesktopFolderUsageDescription"`
}

// BundleInfo carries the per-app parameters of an Info.plist.
type BundleInfo struct {
	// AppName is the capitalised display name ("Hello").
	AppName string
	// Executable is the file name of the main binary inside Contents/MacOS.
	Executable string
	// Identifier is the full reverse-DNS bundle identifier.
	Identifier string
	// ShortVersion is the marketing version string.
	ShortVersion string
	// IconFile is the icns file name inside Contents/Resources.
	IconFile string
}

// ForBundle fills an InfoPlist for the given app. Fixed keys carry the
// standard desktop-app values; the usage-description strings mention the app
// by name so permission dialogs read naturally.
func ForBundle(info BundleInfo) InfoPlist {
	usage := func(resource string) string {
		return fmt.Sprintf("%s may request access to %s.", info.AppName, resource)
	}
	return InfoPlist{
		CFBundleDevelopmentRegion:            "en",
		CFBundleExecutable:                   info.Executable,
		CFBundleIdentifier:                   info.Identifier,
		CFBundleInfoDictionaryVersion:        "6.0",
		CFBundleName:                         info.AppName,
		CFBundlePackageType:                  "APPL",
		CFBundleShortVersionString:           info.ShortVersion,
		CFBundleSupportedPlatforms:           []string{"MacOSX"},
		CFBundleVersion:                      info.ShortVersion,
		CFBundleIconFile:                     info.IconFile,
		NSHighResolutionCapable:              true,
		NSMainNibFile:                        "",
		NSSupportsAutomaticGraphicsSwitching: true,
		CFBundleDisplayName:                  info.AppName,
		NSRequiresAquaSystemAppearance:       false,

		NSCameraUsageDescription:            usage("the camera"),
		NSMicrophoneUsageDescription:        usage("the microphone"),
		NSLocationWhenInUseUsageDescription: usage("your location"),
		NSContactsUsageDescription:          usage("your contacts"),
		NSCalendarsUsageDescription:         usage("your calendars"),
		NSRemindersUsageDescription:         usage("your reminders"),
		NSPhotoLibraryUsageDescription:      usage("your photo library"),
		NSAppleEventsUsageDescription:       usage("Apple Events automation"),
		NSDesktopFolderUsageDescription:     usage("the Desktop folder"),
	}
}

// Encode serialises the property list as an indented XML document.
func Encode(info InfoPlist) ([]byte, error) {
	data, err := hplist.MarshalIndent(info, hplist.XMLFormat, "\t")
	if err != nil {
		return nil, fmt.Errorf("plist: encode: %w", err)
	}
	return data, nil
}

// Write serialises info and writes it atomically to path. A failed write
// leaves any previous file at path intact.
func Write(path string, info InfoPlist) error {
	data, err := Encode(info)
	if err != nil {
		return err
	}
	if err := atomicWrite(path, data); err != nil {
		return err
	}
	slog.Debug("[PLIST] wrote property list", "path", path, "bytes", len(data))
	return nil
}

// atomicWrite writes data using temp file + fsync + rename in the target's
// directory so the rename stays on one filesystem and a crash never leaves a
// partial Info.plist.
func atomicWrite(path string, data []byte) (err error) {
	dir := filepath.Dir(path)
	tmpFile, err := os.CreateTemp(dir, ".Info.plist.tmp.*")
	if err != nil {
		return fmt.Errorf("plist: create temp: %w", err)
	}
	tmpPath := tmpFile.Name()

	defer func() {
		if tmpFile != nil {
			if closeErr := tmpFile.Close(); closeErr != nil && !errors.Is(closeErr, os.ErrClosed) {
				slog.Warn("[PLIST] failed to close temp file", "path", tmpPath, "error", closeErr)
			}
		}
		if err != nil {
			if removeErr := os.Remove(tmpPath); removeErr != nil && !errors.Is(removeErr, os.ErrNotExist) {
				slog.Warn("[PLIST] failed to remove temp file", "path", tmpPath, "error", removeErr)
			}
		}
	}()

	if _, err = tmpFile.Write(data); err != nil {
		return fmt.Errorf("plist: write temp: %w", err)
	}
	if err = tmpFile.Chmod(0o644); err != nil {
		return fmt.Errorf("plist: chmod temp: %w", err)
	}
	if err = tmpFile.Sync(); err != nil {
		return fmt.Errorf("plist: sync temp: %w", err)
	}
	if err = tmpFile.Close(); err != nil {
		return fmt.Errorf("plist: close temp: %w", err)
	}
	tmpFile = nil

	if err = os.Rename(tmpPath, path); err != nil {
		return fmt.Errorf("plist: rename into place: %w", err)
	}
	return nil
}

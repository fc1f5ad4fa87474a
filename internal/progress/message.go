// Package progress defines the typed messages a bundle build emits, the
// send-only proxy the build task talks through, and the shared stream the UI
// side drains on its scheduling thread.
package progress

import "fmt"

// Message is one progress report from a build task. The union is closed:
// the variants in this file are the only implementations.
//
// Kind returns a stable discriminator for transport encodings; Render
// returns the fixed human-readable template the UI and the logs display.
// The rendered strings are part of the contract and covered by tests.
type Message interface {
	Kind() string
	Render() string
	isMessage()
}

// IconMessage is one progress report from the icon production sub-task. It
// converts one-way into a Message via IconTask.
type IconMessage interface {
	Kind() string
	Render() string
	isIconMessage()
}

// BeganProducingBundle opens a build: emitted once, before any file is
// written.
type BeganProducingBundle struct {
	App       string
	TargetDir string
}

// WroteExecutable reports one executable copied into the bundle's MacOS
// directory. Main is true only for the first (primary) executable.
type WroteExecutable struct {
	Path string
	Main bool
}

// FinishedProducingBundle closes a successful build.
type FinishedProducingBundle struct {
	App       string
	TargetDir string
}

// IconTask wraps an icon sub-task message into the bundle message stream.
type IconTask struct {
	Msg IconMessage
}

// Validation failures. Each is terminal: the build returns to idle without
// spawning a task.
type (
	// NotAllFieldsAreFilled reports an incomplete build request.
	NotAllFieldsAreFilled struct{}
	// ExecutablePathDoesNotPointToAFile reports a missing executable.
	ExecutablePathDoesNotPointToAFile struct{}
	// SourceIconPathDoesNotPointToAFile reports a missing or non-file icon.
	SourceIconPathDoesNotPointToAFile struct{}
	// TargetDirectoryPathIsNotADirectory reports a bad target directory.
	TargetDirectoryPathIsNotADirectory struct{}
)

// OtherError carries any runtime failure (I/O, codec) that terminated the
// build.
type OtherError struct {
	Detail string
}

// Nop is a message that asks the consumer to do nothing. It exists so that
// senders can keep a stream's cadence without implying state changes.
type Nop struct{}

// BeganProducingIcons opens the icon sub-task.
type BeganProducingIcons struct {
	Source string
}

// EncodingPng reports one raster encoded, with the target dimension and the
// source SVG's intrinsic size.
type EncodingPng struct {
	Dim        uint
	SourceSize float64
}

// WrotePng reports one side-file PNG written (produce-PNG path only).
type WrotePng struct {
	Dim  uint
	Path string
}

// WroteIconsFile reports the icon container written. ContainerKind is "ICNS"
// or "ICO".
type WroteIconsFile struct {
	Path          string
	ContainerKind string
}

// FinishedProducingIcons closes the icon sub-task.
type FinishedProducingIcons struct {
	Path string
}

func (BeganProducingBundle) isMessage()               {}
func (WroteExecutable) isMessage()                    {}
func (FinishedProducingBundle) isMessage()            {}
func (IconTask) isMessage()                           {}
func (NotAllFieldsAreFilled) isMessage()              {}
func (ExecutablePathDoesNotPointToAFile) isMessage()  {}
func (SourceIconPathDoesNotPointToAFile) isMessage()  {}
func (TargetDirectoryPathIsNotADirectory) isMessage() {}
func (OtherError) isMessage()                         {}
func (Nop) isMessage()                                {}

func (BeganProducingIcons) isIconMessage()    {}
func (EncodingPng) isIconMessage()            {}
func (WrotePng) isIconMessage()               {}
func (WroteIconsFile) isIconMessage()         {}
func (FinishedProducingIcons) isIconMessage() {}

func (BeganProducingBundle) Kind() string               { return "began-producing-bundle" }
func (WroteExecutable) Kind() string                    { return "wrote-executable" }
func (FinishedProducingBundle) Kind() string            { return "finished-producing-bundle" }
func (m IconTask) Kind() string                         { return "icon:" + m.Msg.Kind() }
func (NotAllFieldsAreFilled) Kind() string              { return "not-all-fields-are-filled" }
func (ExecutablePathDoesNotPointToAFile) Kind() string  { return "executable-path-not-a-file" }
func (SourceIconPathDoesNotPointToAFile) Kind() string  { return "source-icon-path-not-a-file" }
func (TargetDirectoryPathIsNotADirectory) Kind() string { return "target-directory-not-a-directory" }
func (OtherError) Kind() string                         { return "other-error" }
func (Nop) Kind() string                                { return "nop" }

func (BeganProducingIcons) Kind() string    { return "began-producing-icons" }
func (EncodingPng) Kind() string            { return "encoding-png" }
func (WrotePng) Kind() string               { return "wrote-png" }
func (WroteIconsFile) Kind() string         { return "wrote-icons-file" }
func (FinishedProducingIcons) Kind() string { return "finished-producing-icons" }

func (m BeganProducingBundle) Render() string {
	return fmt.Sprintf("Began producing icons and generating packages for app %s. Placing in %s.", m.App, m.TargetDir)
}

func (m WroteExecutable) Render() string {
	role := "extra"
	if m.Main {
		role = "main"
	}
	return fmt.Sprintf("Wrote %s executable to %s.", role, m.Path)
}

func (m FinishedProducingBundle) Render() string {
	return fmt.Sprintf("Finished producing the %s app package in %s.", m.App, m.TargetDir)
}

func (m IconTask) Render() string { return m.Msg.Render() }

func (NotAllFieldsAreFilled) Render() string {
	return "Not all fields are filled. Fill every field before generating."
}

func (ExecutablePathDoesNotPointToAFile) Render() string {
	return "The executable path does not point to a file."
}

func (SourceIconPathDoesNotPointToAFile) Render() string {
	return "The source icon path does not point to a file."
}

func (TargetDirectoryPathIsNotADirectory) Render() string {
	return "The target directory path is not a directory."
}

func (m OtherError) Render() string {
	return fmt.Sprintf("The package task failed: %s.", m.Detail)
}

func (Nop) Render() string { return "" }

func (m BeganProducingIcons) Render() string {
	return fmt.Sprintf("Began producing icons from %s.", m.Source)
}

func (m EncodingPng) Render() string {
	return fmt.Sprintf("Encoding a %dx%d PNG from a %.0fpx source.", m.Dim, m.Dim, m.SourceSize)
}

func (m WrotePng) Render() string {
	return fmt.Sprintf("Wrote a %dx%d PNG to %s.", m.Dim, m.Dim, m.Path)
}

func (m WroteIconsFile) Render() string {
	return fmt.Sprintf("Wrote the %s icons file to %s.", m.ContainerKind, m.Path)
}

func (m FinishedProducingIcons) Render() string {
	return fmt.Sprintf("Finished producing icons at %s.", m.Path)
}

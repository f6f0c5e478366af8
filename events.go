// events.go - Telemetry reporting collaborator (named, not specified)

// spec.md §1 treats the event/telemetry reporting layer as an external
// collaborator; §4.5's end_sheet names an optional "report screen usage
// via events" step. This file defines only the interface that collaborator
// must satisfy and a no-op default, matching the way debug_interface.go
// names DebuggableCPU without implementing every backend.
package halftone

// ScreenUsageReport summarizes one screen's participation in a sheet,
// passed to EventReporter at end_sheet when reporting is requested.
type ScreenUsageReport struct {
	Spot         int
	Colorant     int
	LevelsUsed   int
	NumberCached int
	FormSize     int
}

// EventReporter receives sheet-level telemetry. Implementations are
// supplied by the host application (PostScript/PCL interpreter); this
// package ships only NopEventReporter.
type EventReporter interface {
	ReportSheetScreens(dl EraseNr, reports []ScreenUsageReport)
	ReportPreloadWarning(dl EraseNr, availableFraction float64)
	ReportInterrupt(dl EraseNr)
}

// NopEventReporter discards every event. It is the Engine's default
// Report implementation.
type NopEventReporter struct{}

func (NopEventReporter) ReportSheetScreens(EraseNr, []ScreenUsageReport) {}
func (NopEventReporter) ReportPreloadWarning(EraseNr, float64)           {}
func (NopEventReporter) ReportInterrupt(EraseNr)                        {}

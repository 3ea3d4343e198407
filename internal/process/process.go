// Package process reshapes measurement-set columns for analysis: weight
// broadcasting and rescaling, polarization averaging, flag application and
// baseline unit conversion.
package process

// SpeedOfLight in meters per second.
const SpeedOfLight = 299792458.0

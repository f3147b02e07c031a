// Package domain models marine conditions at a coordinate and the risk they pose to vessels.
//
// # Observations
//
// An [ObservationRecord] is the merged snapshot for one query. It carries four magnitudes,
// each of which may be unavailable (nil). Unavailable is not zero: a calm 0.0 m sea is a
// measurement, a missing wave feed is not.
//
//	wave height       metres            worst (max) over the forecast horizon
//	wind speed        knots, 10 m       worst (max) over the forecast horizon
//	current velocity  km/h              worst (max) over the forecast horizon
//	visibility        nautical miles    worst (min) over the forecast horizon
//
// Upstream feeds report visibility in metres; 1 nm = 1852 m.
//
// # Risk classification
//
// Each available factor falls into a bucket with a fixed sub-score:
//
//	Factor      Low      Moderate (25)   High (50)     Severe (100)
//	Wave (m)    <1.5     1.5 to <2.5     2.5 to 4.0    >4.0
//	Wind (kt)   <15      15 to <25       25 to 40      >40
//	Current     <1.0     1.0 to 2.0      n/a           >2.0
//	Vis (nm)    >5       1 to 5          n/a           <1
//
// Lower bounds are inclusive, so a reading on a breakpoint lands in the higher bucket,
// except the Severe cutoff which must be exceeded (4.0 m is High, 4.01 m is Severe).
// Visibility runs the other way: less visibility is more hazard.
//
// The composite score is the maximum sub-score. A single severe factor is never diluted
// by calm ones. The score maps to a level:
//
//	0-25 INFORMATIONAL | 26-50 ADVISORY | 51-75 WARNING | 76-100 URGENT
//
// With sub-scores drawn from {0, 25, 50, 100} the WARNING band is never produced by
// [Classify]; the breakpoint is kept so levels stay a pure function of any 0-100 score.
//
// # Alerts
//
// [FormatAlert] renders an assessment as a fixed text block with one canned recommendation
// per level. Rendering is deterministic: the issue time is the observation time, not the
// wall clock.
package domain

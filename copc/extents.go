package copc

import (
	"fmt"
	"strings"

	"github.com/pkg/errors"

	"github.com/copc-go/copc/lasio"
)

// ErrInvalidExtent is returned when an Extent's min/max or variance
// invariant is violated (spec.md §7: config-invalid). Wraps
// lasio.ErrConfigInvalid so callers can test the category directly.
var ErrInvalidExtent = errors.Wrap(lasio.ErrConfigInvalid, "copc: invalid extent")

// Extent is one dimension's (min, max, mean, variance) statistics
// (spec.md §4.3).
type Extent struct {
	Min, Max, Mean, Variance float64
}

// NewExtent validates and constructs an Extent: Min must not exceed Max,
// and Variance must be non-negative.
func NewExtent(min, max, mean, variance float64) (Extent, error) {
	if min > max {
		return Extent{}, errors.Wrapf(ErrInvalidExtent, "min %v > max %v", min, max)
	}
	if variance < 0 {
		return Extent{}, errors.Wrapf(ErrInvalidExtent, "variance %v < 0", variance)
	}
	return Extent{Min: min, Max: max, Mean: mean, Variance: variance}, nil
}

// String renders an Extent as "(min/max/mean/variance)", matching
// original_source's CopcExtent::ToString.
func (e Extent) String() string {
	return fmt.Sprintf("(%v/%v/%v/%v)", e.Min, e.Max, e.Mean, e.Variance)
}

// coreDimensionCount is the normative (spec.md §9 Open Question) count of
// non-positional dimensions every point format carries before its
// optional color/NIR channels and extra bytes: intensity, return number,
// number of returns, scanner channel, scan direction flag, edge of flight
// line, classification, user data, scan angle, point source ID, GPS time.
const coreDimensionCount = 11

// colorDimensionCount is the red/green/blue triple present on formats 7
// and 8.
const colorDimensionCount = 3

// NumberOfExtents returns the count of non-positional extent slots
// (excluding x, y, z, which are counted separately at serialization time)
// for a point format with numExtraBytes extra-bytes fields.
//
// spec.md §4.3 states this as `base(f) - 3 + e` with `base(6)=11,
// base(7)=14, base(8)=15`, but those base(f) values are themselves
// already the non-positional count (they match the normative ordering
// list's 11 core names, plus 3 for RGB on 7/8, plus 1 for NIR on 8) — a
// further "-3" would shrink format 6's array below the 11 names the
// ordering list requires. This resolves the discrepancy by treating
// base(f) as the non-positional count directly: NumberOfExtents(f, e) =
// base(f) + e, so the full serialized VLR (base(f) + e + 3 for x,y,z)
// still matches the property test's total entry count.
func NumberOfExtents(formatID uint8, numExtraBytes int) (int, error) {
	base, err := baseDimensionCount(formatID)
	if err != nil {
		return 0, err
	}
	if numExtraBytes < 0 {
		return 0, errors.Errorf("copc: negative extra-bytes count %d", numExtraBytes)
	}
	return base + numExtraBytes, nil
}

func baseDimensionCount(formatID uint8) (int, error) {
	switch formatID {
	case 6:
		return coreDimensionCount, nil
	case 7:
		return coreDimensionCount + colorDimensionCount, nil
	case 8:
		return coreDimensionCount + colorDimensionCount + 1, nil
	default:
		return 0, errors.Wrapf(lasio.ErrUnsupportedFormat, "format %d", formatID)
	}
}

// Extents holds one point format's ordered, non-positional extent array
// (spec.md §4.3), plus an optional extended-stats hook (spec.md §9 Open
// Question: present but disabled by default).
type Extents struct {
	PointFormatID uint8
	Items         []Extent

	extendedStatsEnabled bool
}

// NewExtents allocates a zero-valued Extents array sized for formatID
// with numExtraBytes extra-bytes fields.
func NewExtents(formatID uint8, numExtraBytes int) (*Extents, error) {
	n, err := NumberOfExtents(formatID, numExtraBytes)
	if err != nil {
		return nil, err
	}
	return &Extents{PointFormatID: formatID, Items: make([]Extent, n)}, nil
}

// dimension index accessors, in the normative order (spec.md §9 Open
// Question). Every Extents is sized by NumberOfExtents for its
// PointFormatID, so the core accessors are always in range; the color and
// NIR accessors are not checked against the format, and on a format that
// lacks those dimensions they either panic or return an extra-bytes slot.
const (
	idxIntensity = iota
	idxReturnNumber
	idxNumberOfReturns
	idxScannerChannel
	idxScanDirectionFlag
	idxEdgeOfFlightLine
	idxClassification
	idxUserData
	idxScanAngle
	idxPointSourceID
	idxGpsTime
	idxRed
	idxGreen
	idxBlue
	idxNir
)

// Intensity returns the intensity dimension's extent.
func (e *Extents) Intensity() Extent { return e.Items[idxIntensity] }

// ReturnNumber returns the return-number dimension's extent.
func (e *Extents) ReturnNumber() Extent { return e.Items[idxReturnNumber] }

// NumberOfReturns returns the number-of-returns dimension's extent.
func (e *Extents) NumberOfReturns() Extent { return e.Items[idxNumberOfReturns] }

// ScannerChannel returns the scanner-channel dimension's extent.
func (e *Extents) ScannerChannel() Extent { return e.Items[idxScannerChannel] }

// ScanDirectionFlag returns the scan-direction-flag dimension's extent.
func (e *Extents) ScanDirectionFlag() Extent { return e.Items[idxScanDirectionFlag] }

// EdgeOfFlightLine returns the edge-of-flight-line dimension's extent.
func (e *Extents) EdgeOfFlightLine() Extent { return e.Items[idxEdgeOfFlightLine] }

// Classification returns the classification dimension's extent.
func (e *Extents) Classification() Extent { return e.Items[idxClassification] }

// UserData returns the user-data dimension's extent.
func (e *Extents) UserData() Extent { return e.Items[idxUserData] }

// ScanAngle returns the scan-angle dimension's extent.
func (e *Extents) ScanAngle() Extent { return e.Items[idxScanAngle] }

// PointSourceID returns the point-source-ID dimension's extent.
func (e *Extents) PointSourceID() Extent { return e.Items[idxPointSourceID] }

// GpsTime returns the GPS-time dimension's extent.
func (e *Extents) GpsTime() Extent { return e.Items[idxGpsTime] }

// Red, Green, Blue return the color dimensions' extents; valid only for
// point formats 7 and 8.
func (e *Extents) Red() Extent   { return e.Items[idxRed] }
func (e *Extents) Green() Extent { return e.Items[idxGreen] }
func (e *Extents) Blue() Extent  { return e.Items[idxBlue] }

// Nir returns the near-infrared dimension's extent; valid only for point
// format 8.
func (e *Extents) Nir() Extent { return e.Items[idxNir] }

// ExtraBytes returns the extra-bytes fields' extents, in field order.
func (e *Extents) ExtraBytes() []Extent {
	base, _ := baseDimensionCount(e.PointFormatID)
	return e.Items[base:]
}

// HasExtendedStats reports whether this Extents was constructed to carry
// the (disabled-by-default) mean/variance extended-stats EVLR.
func (e *Extents) HasExtendedStats() bool { return e.extendedStatsEnabled }

// SetExtendedStats enables the extended-stats hook and loads mean/variance
// pairs from vlr, mirroring original_source's CopcExtents::SetExtendedStats.
// Nothing in writer.Writer calls this: the hook exists but stays disabled
// by default, per spec.md §9's Open Question.
func (e *Extents) SetExtendedStats(vlr lasio.CopcExtentsVlr) error {
	if len(vlr.Items)-3 != len(e.Items) {
		return errors.Errorf("copc: extended stats VLR has %d items, want %d", len(vlr.Items), len(e.Items)+3)
	}
	for i := range e.Items {
		e.Items[i].Mean = vlr.Items[i+3].Min
		e.Items[i].Variance = vlr.Items[i+3].Max
	}
	e.extendedStatsEnabled = true
	return nil
}

// ToExtendedVlr renders the (disabled-by-default) extended-stats EVLR,
// mirroring original_source's ToLazPerfExtended: mean/variance in place of
// min/max, with the three positional slots left zeroed (the original's
// own TODO: "Handle x,y,z later").
func (e *Extents) ToExtendedVlr() lasio.CopcExtentsVlr {
	items := make([]lasio.CopcExtentEntry, 0, len(e.Items)+3)
	items = append(items, lasio.CopcExtentEntry{}, lasio.CopcExtentEntry{}, lasio.CopcExtentEntry{})
	for _, it := range e.Items {
		items = append(items, lasio.CopcExtentEntry{Min: it.Mean, Max: it.Variance})
	}
	return lasio.CopcExtentsVlr{Items: items}
}

// ToVlr renders the (min, max) CopcExtents VLR with x, y, z prepended,
// mirroring original_source's CopcExtents::ToLazPerf.
func (e *Extents) ToVlr(x, y, z Extent) lasio.CopcExtentsVlr {
	items := make([]lasio.CopcExtentEntry, 0, len(e.Items)+3)
	items = append(items,
		lasio.CopcExtentEntry{Min: x.Min, Max: x.Max},
		lasio.CopcExtentEntry{Min: y.Min, Max: y.Max},
		lasio.CopcExtentEntry{Min: z.Min, Max: z.Max},
	)
	for _, it := range e.Items {
		items = append(items, lasio.CopcExtentEntry{Min: it.Min, Max: it.Max})
	}
	return lasio.CopcExtentsVlr{Items: items}
}

// FromVlr populates a new Extents from a serialized CopcExtents VLR,
// dropping the leading x, y, z entries (spec.md §4.3: "positional... not
// stored in the extent array").
func FromVlr(vlr lasio.CopcExtentsVlr, formatID uint8, numExtraBytes int) (*Extents, error) {
	n, err := NumberOfExtents(formatID, numExtraBytes)
	if err != nil {
		return nil, err
	}
	if len(vlr.Items)-3 != n {
		return nil, errors.Errorf("copc: extents VLR has %d items, want %d", len(vlr.Items), n+3)
	}
	items := make([]Extent, n)
	for i := 0; i < n; i++ {
		it := vlr.Items[i+3]
		items[i] = Extent{Min: it.Min, Max: it.Max}
	}
	return &Extents{PointFormatID: formatID, Items: items}, nil
}

// String renders all populated dimensions in the normative order,
// mirroring original_source's CopcExtents::ToString.
func (e *Extents) String() string {
	var b strings.Builder
	b.WriteString("Copc Extents (Min/Max/Mean/Var):\n")
	fmt.Fprintf(&b, "\tIntensity: %s\n", e.Intensity())
	fmt.Fprintf(&b, "\tReturn Number: %s\n", e.ReturnNumber())
	fmt.Fprintf(&b, "\tNumber Of Returns: %s\n", e.NumberOfReturns())
	fmt.Fprintf(&b, "\tScanner Channel: %s\n", e.ScannerChannel())
	fmt.Fprintf(&b, "\tScan Direction Flag: %s\n", e.ScanDirectionFlag())
	fmt.Fprintf(&b, "\tEdge Of Flight Line: %s\n", e.EdgeOfFlightLine())
	fmt.Fprintf(&b, "\tClassification: %s\n", e.Classification())
	fmt.Fprintf(&b, "\tUser Data: %s\n", e.UserData())
	fmt.Fprintf(&b, "\tScan Angle: %s\n", e.ScanAngle())
	fmt.Fprintf(&b, "\tPoint Source ID: %s\n", e.PointSourceID())
	fmt.Fprintf(&b, "\tGPS Time: %s\n", e.GpsTime())
	if e.PointFormatID > 6 {
		fmt.Fprintf(&b, "\tRed: %s\n", e.Red())
		fmt.Fprintf(&b, "\tGreen: %s\n", e.Green())
		fmt.Fprintf(&b, "\tBlue: %s\n", e.Blue())
	}
	if e.PointFormatID == 8 {
		fmt.Fprintf(&b, "\tNIR: %s\n", e.Nir())
	}
	b.WriteString("\tExtra Bytes:\n")
	for _, eb := range e.ExtraBytes() {
		fmt.Fprintf(&b, "\t\t%s\n", eb)
	}
	return b.String()
}

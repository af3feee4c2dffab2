package types

// Band is the risk category assigned to a metric value.
type Band string

const (
	BandGreen        Band = "GREEN"
	BandAmber        Band = "AMBER"
	BandRed          Band = "RED"
	BandUnclassified Band = "UNCLASSIFIED"
)

// Bands lists every band in display order.
var Bands = []Band{BandGreen, BandAmber, BandRed, BandUnclassified}

func (b Band) String() string {
	return string(b)
}

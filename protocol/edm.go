package protocol

// EDMMode is a legacy electronic distance measurement mode code. The codes
// are part of the vendor command table but no driver operation sends them.
type EDMMode int

const (
	EDMSingleFast   EDMMode = 3  // single measurement, fast
	EDMSingleLRange EDMMode = 4  // single measurement, long range
	EDMSingleSRange EDMMode = 5  // single measurement, short range
	EDMContStandard EDMMode = 6  // repeated, standard
	EDMContDynamic  EDMMode = 7  // repeated, dynamic
	EDMContRefless  EDMMode = 8  // repeated, reflectorless
	EDMContFast     EDMMode = 9  // repeated, fast
	EDMAverageIR    EDMMode = 10 // average, standard
	EDMAverageSR    EDMMode = 11 // average, short range
	EDMAverageLR    EDMMode = 12 // average, long range
)

var edmNames = map[EDMMode]string{
	EDMSingleFast:   "SINGLE_FAST",
	EDMSingleLRange: "SINGLE_LRANGE",
	EDMSingleSRange: "SINGLE_SRANGE",
	EDMContStandard: "CONT_STANDARD",
	EDMContDynamic:  "CONT_DYNAMIC",
	EDMContRefless:  "CONT_REFLESS",
	EDMContFast:     "CONT_FAST",
	EDMAverageIR:    "AVERAGE_IR",
	EDMAverageSR:    "AVERAGE_SR",
	EDMAverageLR:    "AVERAGE_LR",
}

// Valid reports whether m is one of the known mode codes.
func (m EDMMode) Valid() bool {
	_, ok := edmNames[m]
	return ok
}

func (m EDMMode) String() string {
	if name, ok := edmNames[m]; ok {
		return name
	}
	return "UNKNOWN"
}

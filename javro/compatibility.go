package javro

// FetcherNotFound is reported in place of a compatibility verdict when no AvroFetcher
// was configured.
const FetcherNotFound = "AVRO_FETCHER_NOT_FOUND"

type Compatibility int

const (
	CompatibilityUnknown Compatibility = 0
	Compatible           Compatibility = 1
	Incompatible         Compatibility = 2
)

func CompatibilityOf(ok bool) Compatibility {
	if ok {
		return Compatible
	}
	return Incompatible
}

func (c Compatibility) String() string {
	switch c {
	case Compatible:
		return "true"
	case Incompatible:
		return "false"
	}
	return FetcherNotFound
}

// MarshalJSON encodes a verdict as a boolean and the unknown case as FetcherNotFound.
func (c Compatibility) MarshalJSON() ([]byte, error) {
	switch c {
	case Compatible:
		return []byte("true"), nil
	case Incompatible:
		return []byte("false"), nil
	}
	return []byte(`"` + FetcherNotFound + `"`), nil
}

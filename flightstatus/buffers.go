package flightstatus

import "fmt"

// vorFlags pairs the separately transmitted to and from flags of one
// receiver. The combined indication is only updated once both halves of a
// pair have arrived.
type vorFlags struct {
	haveTo, haveFrom bool
	to, from         bool
}

// recvTo reports whether the pair completed and out was updated.
func (b *vorFlags) recvTo(to bool, out *ToFrom) bool {
	b.to = to
	if b.haveFrom {
		b.haveFrom = false
		*out = b.combine()
		return true
	}
	b.haveTo = true
	return false
}

func (b *vorFlags) recvFrom(from bool, out *ToFrom) bool {
	b.from = from
	if b.haveTo {
		b.haveTo = false
		*out = b.combine()
		return true
	}
	b.haveFrom = true
	return false
}

func (b *vorFlags) combine() ToFrom {
	if b.to == b.from {
		return ToFromNone
	}
	if b.to {
		return ToFromTo
	}
	return ToFromFrom
}

// dmeReading pairs the DME in-range flag with the distance.
type dmeReading struct {
	haveValid, haveDist bool
	valid               bool
	dist                float64
}

func (b *dmeReading) recvValid(valid bool, out *string) bool {
	b.valid = valid
	if b.haveDist {
		b.haveDist = false
		*out = b.format()
		return true
	}
	b.haveValid = true
	return false
}

func (b *dmeReading) recvDist(nm float64, out *string) bool {
	b.dist = nm
	if b.haveValid {
		b.haveValid = false
		*out = b.format()
		return true
	}
	b.haveDist = true
	return false
}

func (b *dmeReading) format() string {
	if !b.valid {
		return ""
	}
	return fmt.Sprintf("%05.1f", b.dist)
}

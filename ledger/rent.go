package ledger

import "time"

// AccountStorageOverhead is charged per account on top of its data size.
const AccountStorageOverhead = 128

// Rent computes the balance an account needs to be exempt from rent.
type Rent struct {
	LamportsPerByteYear uint64
	ExemptionThreshold  uint64
}

func DefaultRent() Rent {
	return Rent{LamportsPerByteYear: 3480, ExemptionThreshold: 2}
}

// MinimumBalance is (128 + size) * LamportsPerByteYear * ExemptionThreshold.
func (r Rent) MinimumBalance(size int) uint64 {
	return (AccountStorageOverhead + uint64(size)) * r.LamportsPerByteYear * r.ExemptionThreshold
}

// Clock is the ledger time seen by one transaction.
type Clock struct {
	UnixTimestamp int64
}

func (c Clock) Time() time.Time { return time.Unix(c.UnixTimestamp, 0) }

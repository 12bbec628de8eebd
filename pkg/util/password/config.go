package password

import "github.com/Alijeyrad/mindcare_backend/config"

// lowMemoryCap bounds Memory in low-memory mode; Iterations go up by one to
// compensate.
const lowMemoryCap = 32 * 1024

// FromCentralConfig turns the password section into hashing Params. Unset
// fields keep their DefaultParams value.
func FromCentralConfig(c config.PasswordConfig) *Params {
	p := DefaultParams()
	if c.MemoryKiB > 0 {
		p.Memory = c.MemoryKiB
	}
	if c.Iterations > 0 {
		p.Iterations = c.Iterations
	}
	if c.Parallelism > 0 {
		p.Parallelism = c.Parallelism
	}
	if c.SaltLength > 0 {
		p.SaltLength = c.SaltLength
	}
	if c.KeyLength > 0 {
		p.KeyLength = c.KeyLength
	}
	if c.LowMemoryMode && p.Memory > lowMemoryCap {
		p.Memory = lowMemoryCap
		p.Iterations++
	}
	return p
}

package record

// Flags is the 16-bit alignment flag set.
type Flags uint16

const (
	Paired Flags = 1 << iota
	ProperPair
	Unmapped
	MateUnmapped
	Reverse
	MateReverse
	Read1
	Read2
	Secondary
	QCFail
	Duplicate
	Supplementary
)

// String renders flags the way samtools' -c string format does: one
// character per bit, high order to the right, '-' where unset.
func (f Flags) String() string {
	const pairedMask = ProperPair | MateUnmapped | MateReverse | Read1 | Read2
	if f&Paired == 0 {
		f &^= pairedMask
	}
	const letters = "pPuUrR12sfdS"
	b := make([]byte, len(letters))
	for i, c := range letters {
		if f&(1<<uint(i)) != 0 {
			b[i] = byte(c)
		} else {
			b[i] = '-'
		}
	}
	return string(b)
}

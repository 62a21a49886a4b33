package sam

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/seqarc/gsa/record"
	"github.com/seqarc/gsa/xerrors"
)

// Marshal renders rec as a tab-delimited SAM text line (the 11
// mandatory fields followed by its attributes), mirroring sam.go's
// record text formatting without carrying its full validation/
// registry machinery (that lives in package codec/record for the
// binary format, which is this module's actual scope).
func Marshal(rec *record.AlignmentRecord) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\t%d\t%s\t%d\t%d\t%s\t%s\t%d\t%d\t%s\t%s",
		rec.Name,
		rec.Flags,
		rec.Ref.Name(),
		rec.Pos+1, // SAM text is 1-based.
		rec.MapQ,
		rec.Cigar.String(),
		mateRefField(rec),
		rec.MatePos+1,
		rec.TemplateLength,
		basesField(rec),
		qualField(rec),
	)
	for _, a := range rec.Attrs {
		b.WriteByte('\t')
		b.WriteString(attrField(a))
	}
	return b.String()
}

func mateRefField(rec *record.AlignmentRecord) string {
	if rec.MateRef == nil {
		return "*"
	}
	if rec.Ref != nil && rec.MateRef.ID() == rec.Ref.ID() {
		return "="
	}
	return rec.MateRef.Name()
}

func basesField(rec *record.AlignmentRecord) string {
	if rec.Bases.Length == 0 {
		return "*"
	}
	return string(rec.Bases.Expand())
}

func qualField(rec *record.AlignmentRecord) string {
	if len(rec.Qualities) == 0 || rec.Qualities.AllAbsent() {
		return "*"
	}
	out := make([]byte, len(rec.Qualities))
	for i, q := range rec.Qualities {
		out[i] = q + '!'
	}
	return string(out)
}

func attrField(a record.Attr) string {
	switch a.Type {
	case record.TypeASCII:
		v, _ := a.ASCII()
		return fmt.Sprintf("%s:A:%c", a.Tag, v)
	case record.TypeInt8, record.TypeInt16, record.TypeInt32, record.TypeUint8, record.TypeUint16, record.TypeUint32:
		v, _ := a.Int()
		return fmt.Sprintf("%s:i:%d", a.Tag, v)
	case record.TypeFloat32:
		v, _ := a.Float()
		return fmt.Sprintf("%s:f:%g", a.Tag, v)
	case record.TypeString:
		v, _ := a.String()
		return fmt.Sprintf("%s:Z:%s", a.Tag, v)
	case record.TypeHex:
		v, _ := a.Hex()
		return fmt.Sprintf("%s:H:%x", a.Tag, v)
	default:
		return fmt.Sprintf("%s:?:", a.Tag)
	}
}

// ParseRecord parses one tab-delimited SAM text line against dict,
// the inverse of Marshal for the subset of attribute types Marshal
// emits.
func ParseRecord(line string, dict *record.Dictionary) (*record.AlignmentRecord, error) {
	fields := strings.Split(line, "\t")
	if len(fields) < 11 {
		return nil, fmt.Errorf("sam: record line has %d fields, want at least 11", len(fields))
	}
	flagsN, err := strconv.Atoi(fields[1])
	if err != nil {
		return nil, fmt.Errorf("sam: flags: %w", err)
	}
	pos, err := strconv.Atoi(fields[3])
	if err != nil {
		return nil, fmt.Errorf("sam: pos: %w", err)
	}
	mapq, err := strconv.Atoi(fields[4])
	if err != nil {
		return nil, fmt.Errorf("sam: mapq: %w", err)
	}
	cigar, err := record.ParseCigar([]byte(fields[5]))
	if err != nil {
		return nil, err
	}
	matePos, err := strconv.Atoi(fields[7])
	if err != nil {
		return nil, fmt.Errorf("sam: matePos: %w", err)
	}
	tlen, err := strconv.Atoi(fields[8])
	if err != nil {
		return nil, fmt.Errorf("sam: tlen: %w", err)
	}

	ref := refByField(dict, fields[2])

	var mateRef *record.Reference
	switch fields[6] {
	case "*":
		mateRef = nil
	case "=":
		mateRef = ref
	default:
		mateRef = dict.ByName(fields[6])
	}

	var bases []byte
	if fields[9] != "*" {
		bases = []byte(fields[9])
	}
	var qual []byte
	if fields[10] != "*" {
		qual = make([]byte, len(fields[10]))
		for i := range qual {
			qual[i] = fields[10][i] - '!'
		}
	}

	var attrs record.Attrs
	for _, f := range fields[11:] {
		if f == "" {
			continue
		}
		a, err := parseAttrField(f)
		if err != nil {
			return nil, err
		}
		attrs = append(attrs, a)
	}

	p := pos - 1
	if pos == 0 {
		p = -1
		ref = nil
	}
	mp := matePos - 1
	if matePos == 0 {
		mp = -1
		mateRef = nil
	}

	rec, err := record.NewRecord(fields[0], ref, mateRef, p, mp, tlen, byte(mapq), cigar, bases, qual, attrs)
	if err != nil {
		return nil, err
	}
	rec.Flags = record.Flags(flagsN)
	return rec, nil
}

func refByField(dict *record.Dictionary, name string) *record.Reference {
	if name == "*" {
		return nil
	}
	return dict.ByName(name)
}

func parseAttrField(f string) (record.Attr, error) {
	parts := strings.SplitN(f, ":", 3)
	if len(parts) != 3 {
		return record.Attr{}, fmt.Errorf("sam: malformed attribute %q", f)
	}
	if len(parts[0]) != 2 {
		return record.Attr{}, xerrors.NewUsageError("sam: invalid tag name %q", parts[0])
	}
	tag := record.NewTag(parts[0])
	switch parts[1] {
	case "A":
		if len(parts[2]) != 1 {
			return record.Attr{}, fmt.Errorf("sam: malformed A attribute %q", f)
		}
		return record.NewASCII(tag, parts[2][0]), nil
	case "i":
		v, err := strconv.ParseInt(parts[2], 10, 64)
		if err != nil {
			return record.Attr{}, fmt.Errorf("sam: malformed i attribute %q: %w", f, err)
		}
		return record.NewInt(tag, v)
	case "f":
		v, err := strconv.ParseFloat(parts[2], 32)
		if err != nil {
			return record.Attr{}, fmt.Errorf("sam: malformed f attribute %q: %w", f, err)
		}
		return record.NewFloat(tag, float32(v)), nil
	case "Z":
		return record.NewString(tag, parts[2]), nil
	case "H":
		b, err := hexDecode(parts[2])
		if err != nil {
			return record.Attr{}, fmt.Errorf("sam: malformed H attribute %q: %w", f, err)
		}
		return record.NewHex(tag, b), nil
	default:
		return record.Attr{}, fmt.Errorf("sam: unsupported attribute type %q in %q", parts[1], f)
	}
}

func hexDecode(s string) ([]byte, error) {
	if len(s)%2 != 0 {
		return nil, fmt.Errorf("odd-length hex string")
	}
	out := make([]byte, len(s)/2)
	for i := range out {
		hi, err := hexNibble(s[2*i])
		if err != nil {
			return nil, err
		}
		lo, err := hexNibble(s[2*i+1])
		if err != nil {
			return nil, err
		}
		out[i] = hi<<4 | lo
	}
	return out, nil
}

func hexNibble(c byte) (byte, error) {
	switch {
	case c >= '0' && c <= '9':
		return c - '0', nil
	case c >= 'A' && c <= 'F':
		return c - 'A' + 10, nil
	case c >= 'a' && c <= 'f':
		return c - 'a' + 10, nil
	default:
		return 0, fmt.Errorf("invalid hex digit %q", c)
	}
}

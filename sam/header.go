// Package sam implements a textual header and record codec, required
// only to make the module usable end-to-end. It is deliberately
// smaller than the sam package: no validation registry, no
// sort-order-aware record comparator (both explicitly out of scope).
//
// Grounded on the sam/header.go, sam/parse_header.go,
// sam/read_group.go and sam/program.go for the header line shapes.
package sam

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/seqarc/gsa/record"
)

// SortOrder names the @HD SO: field value.
type SortOrder string

const (
	SortUnknown    SortOrder = "unknown"
	SortUnsorted   SortOrder = "unsorted"
	SortQueryName  SortOrder = "queryname"
	SortCoordinate SortOrder = "coordinate"
)

// ReadGroup is one @RG header line.
type ReadGroup struct {
	ID       string
	Fields   map[string]string // every tag besides ID, verbatim.
}

// Program is one @PG header line.
type Program struct {
	ID       string
	Fields   map[string]string
}

// Header is the parsed textual header: version, sort order, the
// reference sequence dictionary, read groups, programs and free-text
// comments.
type Header struct {
	Version    string
	SortOrder  SortOrder
	Dict       *record.Dictionary
	ReadGroups []ReadGroup
	Programs   []Program
	Comments   []string
}

// NewHeader returns an empty Header over dict, sorted "unknown".
func NewHeader(dict *record.Dictionary) *Header {
	return &Header{SortOrder: SortUnknown, Dict: dict}
}

// ParseHeader reads the textual header block from r: consecutive
// lines beginning with '@'. It stops
// at the first line not beginning with '@', which the caller must
// consume separately if reading a single combined stream.
func ParseHeader(r *bufio.Reader) (*Header, error) {
	h := &Header{SortOrder: SortUnknown}
	var names []string
	var lengths []int
	for {
		peek, err := r.Peek(1)
		if err != nil {
			if err == io.EOF {
				break
			}
			return nil, fmt.Errorf("sam: read header: %w", err)
		}
		if peek[0] != '@' {
			break
		}
		line, err := r.ReadString('\n')
		if err != nil && err != io.EOF {
			return nil, fmt.Errorf("sam: read header line: %w", err)
		}
		line = strings.TrimRight(line, "\r\n")
		fields := strings.Split(line, "\t")
		switch fields[0] {
		case "@HD":
			for _, f := range fields[1:] {
				tag, val, ok := splitTag(f)
				if !ok {
					continue
				}
				switch tag {
				case "VN":
					h.Version = val
				case "SO":
					h.SortOrder = SortOrder(val)
				}
			}
		case "@SQ":
			name, length := "", 0
			for _, f := range fields[1:] {
				tag, val, ok := splitTag(f)
				if !ok {
					continue
				}
				switch tag {
				case "SN":
					name = val
				case "LN":
					length, _ = strconv.Atoi(val)
				}
			}
			if name == "" {
				return nil, fmt.Errorf("sam: @SQ line missing SN: %q", line)
			}
			names = append(names, name)
			lengths = append(lengths, length)
		case "@RG":
			rg := ReadGroup{Fields: map[string]string{}}
			for _, f := range fields[1:] {
				tag, val, ok := splitTag(f)
				if !ok {
					continue
				}
				if tag == "ID" {
					rg.ID = val
				} else {
					rg.Fields[tag] = val
				}
			}
			h.ReadGroups = append(h.ReadGroups, rg)
		case "@PG":
			pg := Program{Fields: map[string]string{}}
			for _, f := range fields[1:] {
				tag, val, ok := splitTag(f)
				if !ok {
					continue
				}
				if tag == "ID" {
					pg.ID = val
				} else {
					pg.Fields[tag] = val
				}
			}
			h.Programs = append(h.Programs, pg)
		case "@CO":
			if len(fields) > 1 {
				h.Comments = append(h.Comments, strings.Join(fields[1:], "\t"))
			}
		}
	}
	h.Dict = record.NewDictionary(names, lengths)
	return h, nil
}

func splitTag(f string) (tag, val string, ok bool) {
	if len(f) < 3 || f[2] != ':' {
		return "", "", false
	}
	return f[:2], f[3:], true
}

// WriteTo serializes h as a textual header block, one '@'-prefixed
// line per element, references in dictionary order.
func (h *Header) WriteTo(w io.Writer) (int64, error) {
	bw := bufio.NewWriter(w)
	var n int64
	writeLine := func(s string) error {
		k, err := bw.WriteString(s + "\n")
		n += int64(k)
		return err
	}
	hd := "@HD\tVN:" + orDefault(h.Version, "1.6")
	if h.SortOrder != "" {
		hd += "\tSO:" + string(h.SortOrder)
	}
	if err := writeLine(hd); err != nil {
		return n, err
	}
	for _, ref := range h.Dict.All() {
		if err := writeLine(fmt.Sprintf("@SQ\tSN:%s\tLN:%d", ref.Name(), ref.Len())); err != nil {
			return n, err
		}
	}
	for _, rg := range h.ReadGroups {
		if err := writeLine("@RG\tID:" + rg.ID + joinFields(rg.Fields)); err != nil {
			return n, err
		}
	}
	for _, pg := range h.Programs {
		if err := writeLine("@PG\tID:" + pg.ID + joinFields(pg.Fields)); err != nil {
			return n, err
		}
	}
	for _, c := range h.Comments {
		if err := writeLine("@CO\t" + c); err != nil {
			return n, err
		}
	}
	if err := bw.Flush(); err != nil {
		return n, err
	}
	return n, nil
}

func joinFields(m map[string]string) string {
	var b strings.Builder
	for k, v := range m {
		b.WriteByte('\t')
		b.WriteString(k)
		b.WriteByte(':')
		b.WriteString(v)
	}
	return b.String()
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

// Command gsaidx is a thin example program over the index-reading side
// of this module, mirroring the paper/examples/flagstat in
// shape: parse flags, call straight into the library, log.Fatal on
// error. Logging lives only here, never inside the library packages
// themselves.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/seqarc/gsa/bai"
	"github.com/seqarc/gsa/csi"
	"github.com/seqarc/gsa/index"
	"github.com/seqarc/gsa/voffset"
)

func main() {
	log.SetFlags(0)
	if len(os.Args) < 2 {
		usage()
	}
	switch os.Args[1] {
	case "stat":
		runStat(os.Args[2:])
	case "query":
		runQuery(os.Args[2:])
	default:
		usage()
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: gsaidx stat <index-file> | query <index-file> <refID> <start> <end> <refLen>")
	os.Exit(2)
}

// anyIndex is the minimal surface gsaidx needs from either an opened
// *bai.Index or *csi.Index.
type anyIndex interface {
	NumRefs() int
	Stats(refID int) (index.Stats, bool)
	Query(refID, start, end, refLen int) ([]voffset.Chunk, error)
}

func openIndex(path string) (anyIndex, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	b, err := bai.ReadFrom(f)
	if err == nil {
		return b, nil
	}
	if _, err := f.Seek(0, 0); err != nil {
		return nil, err
	}
	return csi.ReadFrom(f)
}

func runStat(args []string) {
	fs := flag.NewFlagSet("stat", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 1 {
		usage()
	}
	idx, err := openIndex(fs.Arg(0))
	if err != nil {
		log.Fatalf("gsaidx: %v", err)
	}
	for i := 0; i < idx.NumRefs(); i++ {
		s, ok := idx.Stats(i)
		if !ok {
			fmt.Printf("ref %d: no reads\n", i)
			continue
		}
		fmt.Printf("ref %d: mapped=%d unmapped=%d span=[%v,%v)\n", i, s.Mapped, s.Unmapped, s.Span.Begin, s.Span.End)
	}
}

func runQuery(args []string) {
	fs := flag.NewFlagSet("query", flag.ExitOnError)
	fs.Parse(args)
	if fs.NArg() != 5 {
		usage()
	}
	idx, err := openIndex(fs.Arg(0))
	if err != nil {
		log.Fatalf("gsaidx: %v", err)
	}
	refID := atoi(fs.Arg(1))
	start := atoi(fs.Arg(2))
	end := atoi(fs.Arg(3))
	refLen := atoi(fs.Arg(4))

	chunks, err := idx.Query(refID, start, end, refLen)
	if err != nil {
		log.Fatalf("gsaidx: %v", err)
	}
	for _, c := range chunks {
		fmt.Printf("%v..%v\n", c.Begin, c.End)
	}
}

func atoi(s string) int {
	var n int
	var neg bool
	for i, c := range s {
		if i == 0 && c == '-' {
			neg = true
			continue
		}
		if c < '0' || c > '9' {
			log.Fatalf("gsaidx: %q is not an integer", s)
		}
		n = n*10 + int(c-'0')
	}
	if neg {
		n = -n
	}
	return n
}

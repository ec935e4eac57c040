// Command gen-zmes generates synthetic .zmes archives for testing conversion.
package main

import (
	"flag"
	"log"
	"os"

	"github.com/lumen-data/particle.report/internal/dls"
	"github.com/lumen-data/particle.report/internal/zmes"
)

func main() {
	output := flag.String("o", "sample.zmes", "output path")
	records := flag.Int("n", 10, "number of records")
	sample := flag.String("sample", "latex 100nm std", "sample name")
	mean := flag.Float64("mean", 105, "target peak diameter (nm)")
	flag.Parse()

	gen := dls.NewSyntheticGenerator(*sample)
	gen.MeanSizeNm = *mean

	b := zmes.NewBuilder()
	for i := 0; i < *records; i++ {
		if err := b.AppendRecord("", gen.NextRecord()); err != nil {
			log.Fatalf("append record %d: %v", i+1, err)
		}
		if (i+1)%10 == 0 {
			log.Printf("%d/%d records", i+1, *records)
		}
	}

	if err := os.WriteFile(*output, b.Bytes(), 0644); err != nil {
		log.Fatalf("write %s: %v", *output, err)
	}
	log.Printf("✓ Created: %s", *output)
}

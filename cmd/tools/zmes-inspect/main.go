// Package main provides an inspection tool for .zmes measurement
// archives. It dumps the parameter tree of each record and runs the
// conversion pipeline to summarize what a collection built from the
// archive would contain.
package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/lumen-data/particle.report/internal/analysis"
	"github.com/lumen-data/particle.report/internal/dls"
	"github.com/lumen-data/particle.report/internal/paramtree"
	"github.com/lumen-data/particle.report/internal/timeutil"
	"github.com/lumen-data/particle.report/internal/zmes"
)

// arrayPreview is the number of leading array values shown in the tree dump.
const arrayPreview = 4

// Config holds configuration for the archive inspection.
type Config struct {
	File     string
	ShowTree bool
	MaxDepth int
	JSONPath string
}

func main() {
	config := parseFlags()

	if config.File == "" {
		fmt.Fprintln(os.Stderr, "Error: archive file is required")
		flag.Usage()
		os.Exit(1)
	}

	data, err := os.ReadFile(config.File)
	if err != nil {
		log.Fatalf("Failed to read archive: %v", err)
	}
	file, err := zmes.Parse(data)
	if err != nil {
		log.Fatalf("Failed to parse archive: %v", err)
	}

	printArchiveSummary(config.File, len(data), file)

	if config.ShowTree {
		for i, rec := range file.Records {
			fmt.Printf("\n---------- Record %d/%d  %s ----------\n", i+1, len(file.Records), rec.GUID)
			printNode(rec.Params, 0, config.MaxDepth)
		}
	}

	label := strings.TrimSuffix(filepath.Base(config.File), filepath.Ext(config.File))
	a := dls.Convert(file, dls.ConvertOptions{Label: label})
	printConversionSummary(a, len(file.Records))

	if config.JSONPath != "" {
		if err := exportJSON(config.JSONPath, a); err != nil {
			log.Fatalf("Export failed: %v", err)
		}
		fmt.Printf("JSON results: %s\n", config.JSONPath)
	}
}

func parseFlags() Config {
	config := Config{}

	flag.StringVar(&config.File, "f", "", "Path to .zmes archive (required)")
	flag.BoolVar(&config.ShowTree, "tree", false, "Dump the full parameter tree of each record")
	flag.IntVar(&config.MaxDepth, "depth", 0, "Limit tree dump depth (0 = unlimited)")
	flag.StringVar(&config.JSONPath, "json", "", "Write the converted collection to a JSON file")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: %s [options]\n\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "Inspection tool for analyzer measurement archives\n\n")
		fmt.Fprintf(os.Stderr, "The tool parses the archive, dumps each record's parameter tree on\n")
		fmt.Fprintf(os.Stderr, "request, then runs the conversion pipeline and reports which records\n")
		fmt.Fprintf(os.Stderr, "produce spectra and what their size distributions look like.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  %s -f run.zmes\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -f run.zmes -tree -depth 3\n", os.Args[0])
		fmt.Fprintf(os.Stderr, "  %s -f run.zmes -json run.json\n", os.Args[0])
	}

	flag.Parse()
	return config
}

func printArchiveSummary(path string, size int, file *zmes.File) {
	fmt.Println("\n========== Archive Summary ==========")
	fmt.Printf("File: %s (%s)\n", path, formatBytes(size))
	fmt.Printf("Format version: %d\n", file.Version)
	fmt.Printf("Records: %d\n", len(file.Records))
	for i, rec := range file.Records {
		nodes, depth := treeShape(rec.Params)
		line := fmt.Sprintf("  %d. %s  %d nodes, depth %d", i+1, rec.GUID, nodes, depth)
		if when := measurementTime(rec.Params); when != "" {
			line += ", " + when
		}
		fmt.Println(line)
	}
	fmt.Println("=====================================")
}

func printConversionSummary(a *analysis.Analysis, records int) {
	fmt.Println("\n========== Conversion Summary ==========")
	fmt.Printf("Collection: %s\n", a.ID)
	fmt.Printf("Spectra: %d of %d records converted\n", a.Len(), records)
	for i, sp := range a.Spectra {
		fmt.Printf("  %d. %s  %q  variables: %s\n", i+1, sp.ID, sp.Title, variableSymbols(sp))
		if z, ok := metaFloat(sp, "zAverage"); ok {
			pdi, _ := metaFloat(sp, "polydispersityIndex")
			fmt.Printf("     z-average %.2f nm, PDI %.4f\n", z, pdi)
		}
		if stats, err := analysis.SpectrumStats(sp); err == nil {
			fmt.Printf("     D10 %.2f / D50 %.2f / D90 %.2f nm, span %.3f\n",
				stats.D10, stats.D50, stats.D90, stats.Span)
		}
	}
	fmt.Println("========================================")
}

// printNode renders one node and its subtree with two-space indentation.
// A positive maxDepth truncates the walk, noting how many children were
// skipped.
func printNode(n *paramtree.Node, depth, maxDepth int) {
	if n == nil {
		return
	}
	indent := strings.Repeat("  ", depth)
	if n.Value.IsDefined() {
		fmt.Printf("%s%s = %s\n", indent, n.Name, formatValue(n.Name, n.Value))
	} else {
		fmt.Printf("%s%s\n", indent, n.Name)
	}
	if maxDepth > 0 && depth+1 >= maxDepth && len(n.Children) > 0 {
		fmt.Printf("%s  (%d children omitted)\n", indent, len(n.Children))
		return
	}
	for _, c := range n.Children {
		printNode(c, depth+1, maxDepth)
	}
}

func formatValue(name string, v paramtree.Value) string {
	switch v.Kind {
	case paramtree.KindString:
		return fmt.Sprintf("%q", v.Str)
	case paramtree.KindFloat:
		return fmt.Sprintf("%g", v.Num)
	case paramtree.KindInt:
		// Date fields are stored as 100ns ticks; show the decoded time
		// alongside the raw value.
		if name == "Measurement Date And Time" {
			return fmt.Sprintf("%d (%s)", v.Int, timeutil.FromDotNetTicks(v.Int).Format(time.RFC3339))
		}
		return fmt.Sprintf("%d", v.Int)
	case paramtree.KindBool:
		return fmt.Sprintf("%t", v.Bool)
	case paramtree.KindFloatArray:
		preview := v.Array
		suffix := ""
		if len(preview) > arrayPreview {
			preview = preview[:arrayPreview]
			suffix = " …"
		}
		parts := make([]string, len(preview))
		for i, f := range preview {
			parts[i] = fmt.Sprintf("%g", f)
		}
		return fmt.Sprintf("float[%d] [%s%s]", len(v.Array), strings.Join(parts, " "), suffix)
	default:
		return v.Kind.String()
	}
}

// treeShape returns the node count and maximum depth of a tree.
func treeShape(root *paramtree.Node) (nodes, depth int) {
	if root == nil {
		return 0, 0
	}
	nodes = 1
	depth = 1
	for _, c := range root.Children {
		n, d := treeShape(c)
		nodes += n
		if d+1 > depth {
			depth = d + 1
		}
	}
	return nodes, depth
}

// measurementTime renders the record's measurement date, decoding tick
// values and passing preformatted strings through.
func measurementTime(root *paramtree.Node) string {
	if root == nil {
		return ""
	}
	n := paramtree.FindDirect(root.Children, "Measurement Date And Time")
	if n == nil {
		return ""
	}
	if ticks, ok := n.Value.AsInt(); ok {
		return timeutil.FromDotNetTicks(ticks).Format(time.RFC3339)
	}
	if s, ok := n.Value.AsString(); ok {
		return s
	}
	return ""
}

func variableSymbols(sp *analysis.Spectrum) string {
	syms := make([]string, 0, len(sp.Variables))
	for sym := range sp.Variables {
		syms = append(syms, sym)
	}
	sort.Strings(syms)
	return strings.Join(syms, "/")
}

func metaFloat(sp *analysis.Spectrum, key string) (float64, bool) {
	switch v := sp.Meta[key].(type) {
	case float64:
		return v, true
	case int64:
		return float64(v), true
	}
	return 0, false
}

func exportJSON(path string, a *analysis.Analysis) error {
	data, err := json.MarshalIndent(a, "", "  ")
	if err != nil {
		return fmt.Errorf("JSON marshal: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}

// formatBytes formats a byte count using binary units.
func formatBytes(b int) string {
	if b < 1024 {
		return fmt.Sprintf("%d B", b)
	}
	div, exp := 1024, 0
	for n := b / 1024; n >= 1024; n /= 1024 {
		div *= 1024
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(b)/float64(div), "KMGTPE"[exp])
}

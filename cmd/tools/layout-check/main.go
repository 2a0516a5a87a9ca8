// cmd/tools/layout-check/main.go
//
// layout-check validates the built-in record layouts and, given a sample
// outbound file, prints the extracted fields of each line so a partner's
// spec sheet can be verified against what we actually generate.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"

	"partner-sync/internal/fixedwidth"
	gof "partner-sync/internal/workers/sync/generate-outbound-file"
)

func layouts() map[string]fixedwidth.RecordLayout {
	return map[string]fixedwidth.RecordLayout{
		"product": gof.ProductLayout(),
	}
}

func main() {
	moduleType := flag.String("module", "product", "Module type whose layout to check")
	sampleFile := flag.String("file", "", "Optional sample file to extract fields from")
	flag.Parse()

	layout, ok := layouts()[*moduleType]
	if !ok {
		fmt.Fprintf(os.Stderr, "Error: no layout for module type %q\n", *moduleType)
		os.Exit(1)
	}

	if err := layout.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: layout %q is invalid: %v\n", layout.Name, err)
		os.Exit(1)
	}

	fmt.Printf("Layout %q: %d fields, %d chars per line\n", layout.Name, len(layout.Fields), layout.TotalWidth())
	ranges := layout.Ranges()
	for i, field := range layout.Fields {
		fmt.Printf("  %-20s %-16s cols %d-%d\n", field.Name, field.Kind, ranges[i].First, ranges[i].Last)
	}

	if *sampleFile == "" {
		return
	}

	f, err := os.Open(*sampleFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	lineNum := 0
	for scanner.Scan() {
		lineNum++
		line := scanner.Text()
		fmt.Printf("line %d:\n", lineNum)
		for i, field := range layout.Fields {
			value := fixedwidth.ExtractString(line, ranges[i])
			fmt.Printf("  %-20s %q\n", field.Name, value)
		}
	}
	if err := scanner.Err(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

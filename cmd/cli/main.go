// Headless batch runner: processes one or more survey files with the
// configured steps and writes the outputs next to each input. Independent
// files run as independent pipeline runs in parallel.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"surveyprep/adapters/excel"
	"surveyprep/domain/table"
	"surveyprep/internal/config"
	"surveyprep/internal/pipeline"
)

func main() {
	popPath := flag.String("population", "", "population reference file for weight calculation")
	outDir := flag.String("out", "", "output directory (default: OUTPUT_DIR from env)")
	flag.Parse()

	if flag.NArg() == 0 {
		fmt.Fprintln(os.Stderr, "usage: cli [-population ref.csv] [-out dir] survey.xlsx [more files...]")
		os.Exit(2)
	}

	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	if *outDir == "" {
		*outDir = cfg.Paths.OutputDir
	}

	opts := pipeline.FromConfig(cfg)
	p, err := pipeline.New(opts)
	if err != nil {
		log.Fatalf("Failed to build pipeline: %v", err)
	}

	var population *table.Table
	if *popPath != "" {
		population, err = excel.NewDataReader(*popPath).ReadTable()
		if err != nil {
			log.Fatalf("Failed to read population reference: %v", err)
		}
	}

	g, ctx := errgroup.WithContext(context.Background())
	for _, inputPath := range flag.Args() {
		inputPath := inputPath
		g.Go(func() error {
			return processFile(ctx, p, inputPath, population, *outDir)
		})
	}
	if err := g.Wait(); err != nil {
		log.Fatalf("Batch processing failed: %v", err)
	}
}

// processFile runs the pipeline over one input and writes its output
// bundle under outDir/<input-stem>/.
func processFile(ctx context.Context, p *pipeline.Pipeline, inputPath string, population *table.Table, outDir string) error {
	raw, err := excel.NewDataReader(inputPath).ReadTable()
	if err != nil {
		return fmt.Errorf("%s: %w", inputPath, err)
	}

	result, err := p.Run(ctx, pipeline.RunInput{Raw: raw, Population: population})
	if err != nil {
		return fmt.Errorf("%s: %w", inputPath, err)
	}

	stem := strings.TrimSuffix(filepath.Base(inputPath), filepath.Ext(inputPath))
	dir := filepath.Join(outDir, stem)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	wide, err := excel.WriteWideXLSX(result.Wide)
	if err != nil {
		return fmt.Errorf("%s: %w", inputPath, err)
	}
	if err := os.WriteFile(filepath.Join(dir, "processed.xlsx"), wide, 0o644); err != nil {
		return err
	}

	if result.Tidy != nil {
		for _, name := range result.Tidy.SetOrder {
			data, err := excel.WriteCSV(result.Tidy.PerSet[name])
			if err != nil {
				return fmt.Errorf("%s: %w", inputPath, err)
			}
			if err := os.WriteFile(filepath.Join(dir, excel.SafeFilename(name)+"_tidy.csv"), data, 0o644); err != nil {
				return err
			}
		}
		master, err := excel.WriteCSV(result.Tidy.Master)
		if err != nil {
			return fmt.Errorf("%s: %w", inputPath, err)
		}
		if err := os.WriteFile(filepath.Join(dir, "master_tidy.csv"), master, 0o644); err != nil {
			return err
		}
	}

	if err := os.WriteFile(filepath.Join(dir, "report.md"), []byte(result.Report.Markdown()), 0o644); err != nil {
		return err
	}

	log.Printf("[CLI] %s processed, run %s, %d finding(s) -> %s",
		inputPath, result.RunID, len(result.Report.Findings), dir)
	return nil
}

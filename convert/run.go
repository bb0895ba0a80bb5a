package convert

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	cli "github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"r2epub/config"
	"r2epub/epub"
	"r2epub/fetch"
	"r2epub/respec"
	"r2epub/state"
)

func Run(ctx context.Context, cmd *cli.Command) (err error) {
	if err := ctx.Err(); err != nil {
		return err
	}

	env := state.EnvFromContext(ctx)
	log := env.Log.Named("convert")

	src := cmd.Args().Get(0)
	dstIdx := 1
	if collection := cmd.String("collection"); len(collection) != 0 {
		fi, err := os.Stat(collection)
		if err != nil {
			return fmt.Errorf("unable to access collection description: %w", err)
		}
		if !fi.Mode().IsRegular() {
			return fmt.Errorf("collection description is not a regular file: %s", collection)
		}
		src = collection
		dstIdx = 0
	} else if len(src) == 0 {
		return errors.New("no input source has been specified")
	}

	dst := cmd.Args().Get(dstIdx)
	if len(dst) == 0 {
		if dst, err = os.Getwd(); err != nil {
			return fmt.Errorf("unable to get working directory: %w", err)
		}
	}
	if dst, err = filepath.Abs(dst); err != nil {
		return err
	}
	if cmd.Args().Len() > dstIdx+1 {
		log.Warn("Malformed command line, too many destinations", zap.Strings("ignoring", cmd.Args().Slice()[dstIdx+1:]))
	}

	env.Overwrite = cmd.Bool("overwrite")
	env.OutputPath = cmd.String("output")
	env.UseRespec = cmd.Bool("respec")

	env.Opts = config.ChapterOptions{
		SpecStatus:   cmd.String("spec-status"),
		PublishDate:  cmd.String("publish-date"),
		SectionLinks: cmd.Bool("section-links") || env.Cfg.Document.SectionLinks,
		TOCDepth:     env.Cfg.Document.TOCDepth,
	}
	if cmd.IsSet("toc-level") {
		env.Opts.TOCDepth = int(cmd.Int("toc-level"))
	}

	if env.Cfg.Document.Images.Cover.Generate && env.Cfg.Document.Images.Cover.TemplatePath != "" {
		data, err := os.ReadFile(env.Cfg.Document.Images.Cover.TemplatePath)
		if err != nil {
			return fmt.Errorf("unable to read cover template from %q: %w", env.Cfg.Document.Images.Cover.TemplatePath, err)
		}
		env.CoverTemplate = data
	}

	log.Info("Processing starting", zap.String("source", src), zap.String("destination", dst))
	defer func(start time.Time) {
		log.Info("Processing completed", zap.Duration("elapsed", time.Since(start)))
	}(time.Now())

	return process(ctx, src, dst, log)
}

// process handles the core conversion logic independently of CLI framework. A
// source naming an existing local file is a collection description, anything
// else must be a document URL.
func process(ctx context.Context, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	client := fetch.NewClient(env.Cfg.Fetch, env.Log)
	renderer := respec.NewClient(env.Cfg.Respec, client, env.Log)

	if fi, err := os.Stat(src); err == nil && fi.Mode().IsRegular() {
		coll, err := config.LoadCollection(src)
		if err != nil {
			return fmt.Errorf("unable to load collection description (%s): %w", src, err)
		}
		return processCollection(ctx, client, renderer, coll, dst, log)
	}

	if _, err := client.CheckURL(src); err != nil {
		return err
	}
	return processDocument(ctx, client, renderer, src, dst, log)
}

// processDocument runs the single document pipeline and writes the result.
func processDocument(ctx context.Context, client *fetch.Client, renderer *respec.Client, src, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	res, err := buildDocument(ctx, client, renderer, src, env.UseRespec, env.Opts, log)
	if err != nil {
		return err
	}
	if err := res.container.Finalize(ctx, client, log); err != nil {
		return fmt.Errorf("unable to finalize container: %w", err)
	}

	values := Values{
		Name:   res.name,
		Title:  res.meta.Title,
		Status: res.meta.SpecStatus,
		Date:   res.meta.PublishDate,
		Source: src,
	}
	return save(ctx, res.container, values, dst, log)
}

// save writes the finished container to disk honoring overwrite and zip
// fixing configuration and stores debugging artifacts.
func save(ctx context.Context, container *epub.Container, values Values, dst string, log *zap.Logger) error {
	env := state.EnvFromContext(ctx)

	var err error
	outputName := env.OutputPath
	if len(outputName) == 0 {
		outputName = buildOutputPath(values, dst, env)
	}
	if outputName, err = filepath.Abs(outputName); err != nil {
		return err
	}

	// Check if output file already exists
	if _, err := os.Stat(outputName); err == nil {
		if !env.Overwrite {
			return fmt.Errorf("output file already exists: %s", outputName)
		}
		log.Warn("Overwriting existing file", zap.String("file", outputName))
		if err = os.Remove(outputName); err != nil {
			return err
		}
	} else if !os.IsNotExist(err) {
		return err
	} else if err := os.MkdirAll(filepath.Dir(outputName), 0755); err != nil {
		return fmt.Errorf("unable to create output directory: %w", err)
	}

	data, err := container.Bytes()
	if err != nil {
		return err
	}

	if env.Cfg.Document.FixZip {
		tmp, err := os.CreateTemp(filepath.Dir(outputName), ".r2epub-*.epub")
		if err != nil {
			return fmt.Errorf("unable to create temporary file: %w", err)
		}
		tmpName := tmp.Name()
		defer os.Remove(tmpName)

		if _, err := tmp.Write(data); err != nil {
			tmp.Close()
			return fmt.Errorf("unable to write temporary file: %w", err)
		}
		if err := tmp.Close(); err != nil {
			return err
		}
		if err := epub.CopyWithoutDataDescriptors(tmpName, outputName); err != nil {
			return fmt.Errorf("unable to generate output: %w", err)
		}
	} else if err := os.WriteFile(outputName, data, 0644); err != nil {
		return fmt.Errorf("unable to generate output: %w", err)
	}

	log.Info("Wrote publication", zap.String("file", outputName), zap.Int("size", len(data)))

	// Store conversion result for debugging
	if env.Rpt != nil {
		env.Rpt.Store(fmt.Sprintf("result-%s", filepath.Base(outputName)), outputName)
		env.Rpt.StoreData("container-layout.txt", []byte(containerLayout(data)))
		env.Rpt.StoreData("metadata.txt", []byte(valuesSummary(values)))
		if opf, err := container.Package().Serialize(); err == nil {
			env.Rpt.StoreData(fmt.Sprintf("package-%s.opf", values.Name), opf)
		}
	}
	return nil
}

// loam renders wiki page sources (markdown, rst or wikitext) into the HTML
// fragments the wiki serves, from the command line. It is the development
// companion of the render package: point it at a page source, get the exact
// stamped HTML the site would cache.
package main

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/hesusruiz/vcutils/yaml"
	"github.com/microcosm-cc/bluemonday"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/loamwiki/loam/render"
	"github.com/loamwiki/loam/rendercache"
)

var debug = false

// formatForFile guesses the source format from the file extension when the
// --format flag is not given.
func formatForFile(name string) string {
	switch strings.ToLower(path.Ext(name)) {
	case ".md", ".markdown":
		return render.FormatMarkdown
	case ".rst":
		return render.FormatRST
	case ".wiki", ".wikitext", ".wt":
		return render.FormatWikitext
	}
	return render.FormatMarkdown
}

// readConfig loads the optional YAML config file. A missing file is not an
// error: every setting has a flag or a default.
func readConfig(fileName string) *yaml.YAML {
	cfg, err := yaml.ParseYamlFile(fileName)
	if err != nil {
		cfg, _ = yaml.ParseYaml("")
	}
	return cfg
}

// attachmentsFor builds the attachment map for a page: the "attachments"
// section of the config file, plus every file in the --attachments
// directory mapped to its own path.
func attachmentsFor(cfg *yaml.YAML, dir string) map[string]string {
	m := make(map[string]string)
	for name, v := range cfg.Map("attachments") {
		m[name] = fmt.Sprintf("%v", v)
	}
	if dir != "" {
		entries, err := os.ReadDir(dir)
		if err == nil {
			for _, e := range entries {
				if !e.IsDir() {
					m[e.Name()] = filepath.ToSlash(filepath.Join(dir, e.Name()))
				}
			}
		}
	}
	return m
}

// sanitizePolicy is the UGC policy widened with the attributes the pipeline
// itself emits: heading anchors, footnote ids, the class vocabulary, image
// sizes and the hardened-link attributes.
func sanitizePolicy() *bluemonday.Policy {
	p := bluemonday.UGCPolicy()
	p.AllowAttrs("id").OnElements("h1", "h2", "h3", "h4", "h5", "h6", "sup", "li")
	p.AllowAttrs("class").Globally()
	p.AllowAttrs("width", "height").OnElements("img")
	p.AllowAttrs("target", "rel").OnElements("a")
	p.AllowAttrs("style").OnElements("td", "th", "table")
	return p
}

// renderFile runs one source file through the pipeline and returns the
// stamped HTML.
func renderFile(inputFileName string, c *cli.Context, r *render.Renderer, cfg *yaml.YAML, sugar *zap.SugaredLogger) (string, error) {
	source, err := os.ReadFile(inputFileName)
	if err != nil {
		return "", err
	}

	format := c.String("format")
	if format == "" {
		format = cfg.String("render.format", formatForFile(inputFileName))
	}

	baseURL := c.String("base-url")
	if baseURL == "" {
		baseURL = cfg.String("render.baseURL", "")
	}

	req := render.Request{
		Source:      string(source),
		Format:      format,
		Namespace:   c.String("namespace"),
		BaseURL:     baseURL,
		Attachments: attachmentsFor(cfg, c.String("attachments")),
	}

	slug := render.Slugify(strings.TrimSuffix(path.Base(inputFileName), path.Ext(inputFileName)))
	key := rendercache.Key(req.Namespace, slug, req.Source)

	var cache *rendercache.Cache
	if cachePath := c.String("cache"); cachePath != "" {
		cache, err = rendercache.Open(cachePath, render.Version)
		if err != nil {
			return "", err
		}
		defer cache.Close()

		if html, ok := cache.Get(key); ok {
			sugar.Debugw("cache hit", "slug", slug)
			return html, nil
		}
	}

	doc, err := r.Render(req)
	if err != nil {
		return "", err
	}

	html := doc.HTML
	if c.Bool("sanitize") {
		// Sanitizing drops HTML comments, the stamp included; restamp so
		// the output stays cacheable.
		html = render.Stamp(sanitizePolicy().Sanitize(html), doc.Version)
	}

	if cache != nil {
		if err := cache.Put(key, html); err != nil {
			sugar.Warnw("cache write failed", "error", err)
		}
	}
	return html, nil
}

// processWatch checks periodically if the input file has been modified, and
// if so renders it again and rewrites the output file.
func processWatch(inputFileName, outputFileName string, c *cli.Context, r *render.Renderer, cfg *yaml.YAML, sugar *zap.SugaredLogger) error {

	var oldTimestamp time.Time

	for {
		info, err := os.Stat(inputFileName)
		if err != nil {
			return err
		}
		currentTimestamp := info.ModTime()

		if oldTimestamp.Before(currentTimestamp) {
			oldTimestamp = currentTimestamp
			fmt.Println("************Processing*************")
			html, err := renderFile(inputFileName, c, r, cfg, sugar)
			if err != nil {
				return err
			}
			if err := os.WriteFile(outputFileName, []byte(html), 0664); err != nil {
				return err
			}
		}

		// Check again in one second
		time.Sleep(1 * time.Second)
	}
}

// process is the main entry point of the program
func process(c *cli.Context) error {

	var inputFileName = "page.md"

	outputFileName := c.String("output")
	dryrun := c.Bool("dryrun")
	debug = c.Bool("debug")

	var z *zap.Logger
	var err error

	if debug {
		z, err = zap.NewDevelopment()
	} else {
		z, err = zap.NewProduction()
	}
	if err != nil {
		panic(err)
	}
	sugar := z.Sugar()
	defer sugar.Sync()

	if c.Args().Present() {
		inputFileName = c.Args().First()
	} else {
		fmt.Printf("no input file provided, using %q\n", inputFileName)
	}

	if len(outputFileName) == 0 {
		ext := path.Ext(inputFileName)
		if len(ext) == 0 {
			outputFileName = inputFileName + ".html"
		} else {
			outputFileName = strings.Replace(inputFileName, ext, ".html", 1)
		}
	}

	cfg := readConfig(c.String("config"))
	r := render.New(
		render.WithLogger(sugar),
		render.WithCodeStyle(cfg.String("render.codeStyle", c.String("style"))),
		render.WithVersion(c.Int("render-version")),
	)

	if c.Bool("watch") {
		return processWatch(inputFileName, outputFileName, c, r, cfg, sugar)
	}

	html, err := renderFile(inputFileName, c, r, cfg, sugar)
	if err != nil {
		return err
	}

	if dryrun {
		fmt.Printf("dry run: processed %v without writing output\n", inputFileName)
		return nil
	}

	fmt.Printf("processing %v and generating %v\n", inputFileName, outputFileName)
	return os.WriteFile(outputFileName, []byte(html), 0664)
}

func main() {

	app := &cli.App{
		Name:      "loam",
		Version:   fmt.Sprintf("v0.1 (render v%d)", render.Version),
		Compiled:  time.Now(),
		Usage:     "render a wiki page source into HTML",
		UsageText: "loam [options] [INPUT_FILE] (default input file is page.md)",
		Action:    process,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "write html to `FILE` (default is input file name with extension .html)",
			},
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "source format: markdown, rst or wikitext (default: by file extension)",
			},
			&cli.StringFlag{
				Name:  "namespace",
				Value: "main",
				Usage: "wiki namespace used for internal links",
			},
			&cli.StringFlag{
				Name:  "base-url",
				Usage: "absolute base `URL` prefixed to internal links",
			},
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Value:   "loam.yaml",
				Usage:   "read settings from `FILE`",
			},
			&cli.StringFlag{
				Name:  "style",
				Value: "github",
				Usage: "chroma style for highlighted code",
			},
			&cli.StringFlag{
				Name:  "attachments",
				Usage: "resolve attachment references against files in `DIR`",
			},
			&cli.StringFlag{
				Name:  "cache",
				Usage: "cache rendered pages in the bbolt database at `FILE`",
			},
			&cli.IntFlag{
				Name:  "render-version",
				Usage: "override the cache-stamp version",
			},
			&cli.BoolFlag{
				Name:  "sanitize",
				Usage: "run the rendered HTML through the sanitizer",
			},
			&cli.BoolFlag{
				Name:    "dryrun",
				Aliases: []string{"n"},
				Usage:   "do not generate output file, just process input file",
			},
			&cli.BoolFlag{
				Name:    "debug",
				Aliases: []string{"d"},
				Usage:   "run in debug mode",
			},
			&cli.BoolFlag{
				Name:    "watch",
				Aliases: []string{"w"},
				Usage:   "watch the file for changes",
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		panic(err)
	}

}

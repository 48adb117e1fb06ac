// Command mp4meta writes and reads text metadata of MP4 and MOV files in place.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/rs/zerolog"

	"github.com/tetsuo/mp4meta"
	"github.com/tetsuo/mp4meta/internal/config"
)

const usage = `usage: mp4meta [-config file] [-log-level level] [-no-color] <command> [flags] <file>

commands:
  inject     write text atoms and the matching Apple keys
  read       print the text atoms (or the Apple keys with -apple)
  location   print the stored coordinates
`

var (
	errUsage = errors.New("invalid usage")
	errNoFix = errors.New("location 0,0 is treated as no fix")
)

var (
	keyColor   = color.New(color.FgCyan)
	valueColor = color.New(color.FgWhite, color.Bold)
	okColor    = color.New(color.FgGreen)
	errColor   = color.New(color.FgRed)
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		if errors.Is(err, errUsage) {
			fmt.Fprint(os.Stderr, usage)
		} else {
			errColor.Fprintf(os.Stderr, "error: %v\n", err)
		}
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("mp4meta", flag.ContinueOnError)
	global.SetOutput(io.Discard)
	configPath := global.String("config", "", "YAML configuration file (default ./"+config.DefaultFile+")")
	logLevel := global.String("log-level", "", "log level: debug, info, warn, error")
	noColor := global.Bool("no-color", false, "disable coloured output")
	if err := global.Parse(args); err != nil {
		return errUsage
	}

	cfg, err := config.LoadOrDefault(*configPath)
	if err != nil {
		return err
	}
	if *logLevel != "" {
		cfg.Defaults.LogLevel = *logLevel
	}
	if *noColor {
		cfg.Defaults.NoColor = true
	}
	lvl, err := cfg.Level()
	if err != nil {
		return err
	}
	color.NoColor = color.NoColor || cfg.Defaults.NoColor

	inj := &mp4meta.Injector{
		Logger: zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, NoColor: color.NoColor}).
			Level(lvl).With().Timestamp().Logger(),
		ChunkSize: cfg.Defaults.ChunkSize,
	}

	rest := global.Args()
	if len(rest) == 0 {
		return errUsage
	}
	switch rest[0] {
	case "inject":
		return runInject(inj, cfg, rest[1:], out)
	case "read":
		return runRead(inj, rest[1:], out)
	case "location":
		return runLocation(inj, rest[1:], out)
	default:
		return fmt.Errorf("unknown command %q: %w", rest[0], errUsage)
	}
}

// tagAliases maps the short names accepted by -tag onto atom tags.
var tagAliases = map[string]string{
	"artist":      mp4meta.TagArtist,
	"author":      mp4meta.TagArtist,
	"title":       mp4meta.TagTitle,
	"software":    mp4meta.TagSoftware,
	"comment":     mp4meta.TagComment,
	"date":        mp4meta.TagDate,
	"description": mp4meta.TagDescription,
	"make":        mp4meta.TagMake,
	"model":       mp4meta.TagModel,
	"location":    mp4meta.TagLocation,
}

// tagFlag collects repeated -tag key=value flags.
type tagFlag map[string]string

func (t tagFlag) String() string { return fmt.Sprint(map[string]string(t)) }

func (t tagFlag) Set(s string) error {
	k, v, ok := strings.Cut(s, "=")
	if !ok || k == "" {
		return fmt.Errorf("want key=value, got %q", s)
	}
	if tag, ok := tagAliases[strings.ToLower(k)]; ok {
		k = tag
	}
	t[k] = v
	return nil
}

func runInject(inj *mp4meta.Injector, cfg *config.Config, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("inject", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	tags := tagFlag{}
	fs.Var(tags, "tag", "atom as key=value; key is a four-character tag or a short name (repeatable)")
	vendor := fs.String("make", cfg.Metadata.Make, "camera make")
	model := fs.String("model", cfg.Metadata.Model, "camera model")
	software := fs.String("software", cfg.Metadata.Software, "software")
	author := fs.String("author", cfg.Metadata.Author, "author")
	comment := fs.String("comment", cfg.Metadata.Comment, "comment")
	lat := fs.Float64("lat", 0, "latitude in degrees")
	lon := fs.Float64("lon", 0, "longitude in degrees")
	exifPath := fs.String("exif", "", "copy capture details from the EXIF block of a JPEG or TIFF")
	async := fs.Bool("async", false, "run the write on the suspending file path")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	path := fs.Arg(0)

	atoms := map[string]string{}
	if *exifPath != "" {
		m, err := loadEXIF(*exifPath)
		if err != nil {
			return err
		}
		for k, v := range mp4meta.MetadataToAtoms(m) {
			atoms[k] = v
		}
	}

	set := map[string]bool{}
	fs.Visit(func(f *flag.Flag) { set[f.Name] = true })
	for tag, v := range map[string]string{
		mp4meta.TagMake:     *vendor,
		mp4meta.TagModel:    *model,
		mp4meta.TagSoftware: *software,
		mp4meta.TagArtist:   *author,
		mp4meta.TagComment:  *comment,
	} {
		if v == "" {
			continue
		}
		// Configured defaults never override values copied from EXIF.
		if _, ok := atoms[tag]; ok && !set[flagName(tag)] {
			continue
		}
		atoms[tag] = v
	}
	if set["lat"] != set["lon"] {
		return fmt.Errorf("-lat and -lon go together: %w", errUsage)
	}
	if set["lat"] {
		if *lat == 0 && *lon == 0 {
			return errNoFix
		}
		atoms[mp4meta.TagLocation] = mp4meta.FormatISO6709(*lat, *lon)
	}
	for k, v := range tags {
		atoms[k] = v
	}
	if len(atoms) == 0 {
		return fmt.Errorf("nothing to write: %w", errUsage)
	}

	var err error
	if *async {
		// The suspending path reports only success, so the failure detail
		// comes from the logger.
		if !<-inj.InjectAtomsAsync(path, atoms) {
			err = fmt.Errorf("inject %s failed", path)
		}
	} else {
		err = inj.InjectAtomsErr(path, atoms)
	}
	if err != nil {
		return err
	}
	okColor.Fprintf(out, "wrote %d atoms to %s\n", len(atoms), path)
	return nil
}

func flagName(tag string) string {
	switch tag {
	case mp4meta.TagMake:
		return "make"
	case mp4meta.TagModel:
		return "model"
	case mp4meta.TagSoftware:
		return "software"
	case mp4meta.TagArtist:
		return "author"
	case mp4meta.TagComment:
		return "comment"
	}
	return ""
}

func loadEXIF(path string) (*mp4meta.Metadata, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := mp4meta.MetadataFromEXIF(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return m, nil
}

func runRead(inj *mp4meta.Injector, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("read", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	apple := fs.Bool("apple", false, "print the Apple mdta keys instead of the text atoms")
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	if fs.NArg() != 1 {
		return errUsage
	}

	var (
		values map[string]string
		err    error
	)
	if *apple {
		values, err = inj.ReadAppleMetadataErr(fs.Arg(0))
	} else {
		values, err = inj.ReadAtomsErr(fs.Arg(0))
	}
	if err != nil {
		return err
	}
	printValues(out, values)
	return nil
}

func printValues(out io.Writer, values map[string]string) {
	keys := make([]string, 0, len(values))
	width := 0
	for k := range values {
		keys = append(keys, k)
		width = max(width, len([]rune(k)))
	}
	sort.Strings(keys)
	for _, k := range keys {
		keyColor.Fprintf(out, "%-*s", width, k)
		fmt.Fprint(out, "  ")
		valueColor.Fprintln(out, values[k])
	}
}

func runLocation(inj *mp4meta.Injector, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("location", flag.ContinueOnError)
	fs.SetOutput(io.Discard)
	if err := fs.Parse(args); err != nil {
		return fmt.Errorf("%v: %w", err, errUsage)
	}
	if fs.NArg() != 1 {
		return errUsage
	}
	lat, lon, err := inj.ReadLocationErr(fs.Arg(0))
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s %s\n", valueColor.Sprintf("%.4f", lat), valueColor.Sprintf("%.4f", lon))
	return nil
}

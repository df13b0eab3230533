// ctmtool is a CLI utility for inspecting, converting and verifying CTM containers.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	ctm "github.com/flywave/go-openctm"
	"github.com/flywave/go-openctm/internal/config"
	"github.com/flywave/go-openctm/internal/logger"
)

func main() {
	if len(os.Args) < 2 {
		printUsage()
		os.Exit(1)
	}

	command := os.Args[1]
	args := os.Args[2:]

	var code int
	switch command {
	case "info":
		code = cmdInfo(args)
	case "convert":
		code = cmdConvert(args)
	case "export":
		code = cmdExport(args)
	case "verify":
		code = cmdVerify(args)
	case "selftest":
		code = cmdSelftest(args)
	case "help", "-h", "--help":
		printUsage()
	default:
		fmt.Fprintf(os.Stderr, "Unknown command: %s\n", command)
		printUsage()
		code = 1
	}
	logger.Sync()
	os.Exit(code)
}

func printUsage() {
	fmt.Println(`ctmtool - CTM mesh container utility

Usage:
  ctmtool <command> [options]

Commands:
  info <file.ctm>                       Show container header and mesh statistics
  convert [-tier T] <in> <out.ctm>      Encode a glTF/GLB or CTM mesh into a container
  export <name|file.ctm> <out.glb>      Export a container as binary glTF
  verify [-tiers T,...] <in>...         Round trip meshes through every tier
  selftest [-tiers T,...]               Round trip the built in shapes

Common options:
  -config <file>   YAML configuration file
  -debug           Enable debug logging

Examples:
  ctmtool convert -tier mg2 model.glb model.ctm
  ctmtool export model.ctm model.glb
  ctmtool verify -tiers raw,mg1 model.glb`)
}

type common struct {
	configPath *string
	debug      *bool
}

func newFlagSet(name string) (*flag.FlagSet, *common) {
	fs := flag.NewFlagSet(name, flag.ExitOnError)
	c := &common{
		configPath: fs.String("config", "", "YAML configuration file"),
		debug:      fs.Bool("debug", false, "Enable debug logging"),
	}
	return fs, c
}

// setup loads the configuration and installs the logger.
func (c *common) setup() (*config.Config, error) {
	cfg, err := config.Load(*c.configPath)
	if err != nil {
		return nil, err
	}
	if *c.debug {
		cfg.Logging.Level = "debug"
	}
	if err := logger.Init(cfg.Logging.Level, cfg.Logging.LogFile); err != nil {
		return nil, err
	}
	ctm.SetLogger(logger.Log)
	return cfg, nil
}

func fail(err error) int {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
	logger.Log.Error("command failed", zap.Error(err))
	return 1
}

func parseTierList(s string) ([]ctm.CompressionTier, error) {
	if s == "" {
		return nil, nil
	}
	return config.ParseTiers(strings.Split(s, ","))
}

func isGltf(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".gltf", ".glb":
		return true
	}
	return false
}

func newImporter(cfg *config.Config) *ctm.Importer {
	return ctm.NewImporter().
		SetModelLocator(ctm.NewDirLocator(cfg.Locator.Paths...)).
		SetCodec(ctm.NewCodec(cfg.EncoderOptions()))
}

// loadMeshes reads a glTF file into one mesh per primitive, anything else
// through the container importer.
func loadMeshes(cfg *config.Config, in string) ([]*ctm.EngineMesh, error) {
	if isGltf(in) {
		return ctm.LoadGltf(in)
	}
	em, err := newImporter(cfg).Load(in)
	if err != nil {
		return nil, err
	}
	return []*ctm.EngineMesh{em}, nil
}

func cmdInfo(args []string) int {
	fs, c := newFlagSet("info")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: ctmtool info <file.ctm>")
		return 1
	}
	if _, err := c.setup(); err != nil {
		return fail(err)
	}

	f, err := os.Open(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	defer f.Close()

	rd := ctm.NewReader(f)
	m, err := rd.Decode()
	if err != nil {
		return fail(err)
	}
	h := rd.Header()
	bb := m.BoundingBox()

	fmt.Printf("File:       %s\n", fs.Arg(0))
	fmt.Printf("Version:    %d\n", h.Version)
	fmt.Printf("Method:     %s\n", h.Tier)
	fmt.Printf("Vertices:   %d\n", h.VertexCount)
	fmt.Printf("Triangles:  %d\n", h.TriangleCount)
	fmt.Printf("Normals:    %v\n", h.HasNormals())
	fmt.Printf("Comment:    %s\n", h.Comment)
	fmt.Printf("Bounds:     [%.4f %.4f %.4f] - [%.4f %.4f %.4f]\n",
		bb.Min[0], bb.Min[1], bb.Min[2], bb.Max[0], bb.Max[1], bb.Max[2])
	fmt.Printf("Volume:     %.6f\n", bb.Volume())
	for _, uv := range m.UVMaps {
		fmt.Printf("  uv map    %-12s %d components", uv.Name, uv.Components)
		if uv.Filename != "" {
			fmt.Printf(" (%s)", uv.Filename)
		}
		fmt.Println()
	}
	for _, at := range m.Attributes {
		fmt.Printf("  attribute %-12s %d components\n", at.Name, at.Components)
	}
	return 0
}

func cmdConvert(args []string) int {
	fs, c := newFlagSet("convert")
	tierName := fs.String("tier", "", "Compression tier: raw, mg1 or mg2 (default from config)")
	comment := fs.String("comment", "", "Comment stored in the container")
	meshIdx := fs.Int("mesh", 0, "Mesh to convert when the input holds several")
	normals := fs.Bool("normals", false, "Compute normals when the input has none")
	fs.Parse(args)
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: ctmtool convert [-tier T] [-comment C] <in.glb|in.gltf|in.ctm> <out.ctm>")
		return 1
	}
	cfg, err := c.setup()
	if err != nil {
		return fail(err)
	}
	if *tierName != "" {
		cfg.Codec.Tier = *tierName
	}
	if *comment != "" {
		cfg.Codec.Comment = *comment
	}
	tier, err := cfg.Tier()
	if err != nil {
		return fail(err)
	}

	meshes, err := loadMeshes(cfg, fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	if *meshIdx < 0 || *meshIdx >= len(meshes) {
		return fail(fmt.Errorf("mesh %d not found, input has %d", *meshIdx, len(meshes)))
	}
	m, err := ctm.Extract(meshes[*meshIdx])
	if err != nil {
		return fail(err)
	}
	if *normals && !m.HasNormals() {
		m = m.WithComputedNormals()
	}

	data, err := ctm.NewCodec(cfg.EncoderOptions()).Encode(m, cfg.Codec.Comment, tier)
	if err != nil {
		return fail(err)
	}
	if err := os.WriteFile(fs.Arg(1), data, 0644); err != nil {
		return fail(err)
	}
	logger.Log.Info("converted",
		zap.String("in", fs.Arg(0)),
		zap.String("out", fs.Arg(1)),
		zap.Stringer("tier", tier),
		zap.Int("bytes", len(data)))
	fmt.Printf("%s -> %s (%s, %d vertices, %d triangles, %d bytes)\n",
		fs.Arg(0), fs.Arg(1), tier, m.VertexCount(), m.TriangleCount(), len(data))
	return 0
}

func cmdExport(args []string) int {
	fs, c := newFlagSet("export")
	padding := fs.Int("padding", 4, "Pad the GLB to a multiple of N bytes")
	fs.Parse(args)
	if fs.NArg() < 2 {
		fmt.Fprintln(os.Stderr, "Usage: ctmtool export <name|file.ctm> <out.glb>")
		return 1
	}
	cfg, err := c.setup()
	if err != nil {
		return fail(err)
	}

	em, err := newImporter(cfg).Load(fs.Arg(0))
	if err != nil {
		return fail(err)
	}
	doc, err := ctm.MeshToGltf([]*ctm.EngineMesh{em})
	if err != nil {
		return fail(err)
	}
	data, err := ctm.GetGltfBinary(doc, *padding)
	if err != nil {
		return fail(err)
	}
	if err := os.WriteFile(fs.Arg(1), data, 0644); err != nil {
		return fail(err)
	}
	fmt.Printf("%s -> %s (%d bytes)\n", fs.Arg(0), fs.Arg(1), len(data))
	return 0
}

func runVerify(cfg *config.Config, meshes []*ctm.EngineMesh, tierList string) int {
	tiers, err := parseTierList(tierList)
	if err != nil {
		return fail(err)
	}
	if tiers == nil {
		if tiers, err = cfg.VerifyTiers(); err != nil {
			return fail(err)
		}
	}
	v := ctm.NewVerifier(ctm.NewCodec(cfg.EncoderOptions()))
	v.Policies = cfg.Policies()
	v.Comment = cfg.Codec.Comment

	rep := v.VerifyBatch(meshes, tiers)
	fmt.Print(rep.String())
	if err := rep.Err(); err != nil {
		logger.Log.Warn("verification failed", zap.Error(err))
		return 1
	}
	return 0
}

func cmdVerify(args []string) int {
	fs, c := newFlagSet("verify")
	tierList := fs.String("tiers", "", "Comma separated tiers to check (default from config)")
	fs.Parse(args)
	if fs.NArg() < 1 {
		fmt.Fprintln(os.Stderr, "Usage: ctmtool verify [-tiers T,...] <in>...")
		return 1
	}
	cfg, err := c.setup()
	if err != nil {
		return fail(err)
	}

	var meshes []*ctm.EngineMesh
	for _, in := range fs.Args() {
		ms, err := loadMeshes(cfg, in)
		if err != nil {
			return fail(err)
		}
		meshes = append(meshes, ms...)
	}
	return runVerify(cfg, meshes, *tierList)
}

func cmdSelftest(args []string) int {
	fs, c := newFlagSet("selftest")
	tierList := fs.String("tiers", "", "Comma separated tiers to check (default from config)")
	fs.Parse(args)
	cfg, err := c.setup()
	if err != nil {
		return fail(err)
	}
	return runVerify(cfg, ctm.SampleMeshes(), *tierList)
}

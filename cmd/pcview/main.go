// pcview renders large binary point clouds at interactive rates by
// streaming fixed spatial blocks between disk, host memory and a small
// set of GPU slots.
package main

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/xlab/closer"

	"pcview/internal/config"
)

func init() {
	runtime.LockOSThread()
}

const configFile = "pcview.yaml"

func main() {
	opts, err := parseArgs(os.Args[1:])
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		usage()
		os.Exit(1)
	}

	cfg, err := config.Load(configFile)
	if err != nil {
		log.Printf("%v (using defaults)", err)
	}
	config.Set(cfg)

	if err := glfw.Init(); err != nil {
		log.Printf("init glfw: %v", err)
		os.Exit(1)
	}
	defer glfw.Terminate()

	window, err := setupWindow(cfg)
	if err != nil {
		log.Printf("create window: %v", err)
		os.Exit(1)
	}

	if err := gl.Init(); err != nil {
		log.Printf("init opengl: %v", err)
		os.Exit(1)
	}

	viewer, err := NewViewer(window, opts)
	if err != nil {
		log.Printf("init viewer: %v", err)
		os.Exit(1)
	}
	closer.Bind(viewer.Shutdown)

	viewer.Run()
	closer.Close()
}

func setupWindow(cfg config.Settings) (*glfw.Window, error) {
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 1)
	glfw.WindowHint(glfw.OpenGLForwardCompatible, glfw.True)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)

	window, err := glfw.CreateWindow(cfg.WindowWidth, cfg.WindowHeight, "pcview", nil, nil)
	if err != nil {
		return nil, err
	}
	window.MakeContextCurrent()
	glfw.SwapInterval(0)
	window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
	return window, nil
}

// parseArgs reads the positional .ply path, shader paths by suffix, and
// the mode flags.
func parseArgs(args []string) (Options, error) {
	opts := Options{
		VertPath: filepath.Join("assets", "shaders", "point.vert"),
		FragPath: filepath.Join("assets", "shaders", "point.frag"),
	}
	for _, arg := range args {
		switch {
		case arg == "--test":
			opts.Test = true
		case arg == "--ooc":
			opts.OOC = true
		case arg == "--cache":
			opts.Cache = true
		case arg == "--export":
			opts.Export = true
		case strings.HasSuffix(arg, ".ply"):
			opts.PlyPath = arg
		case strings.HasSuffix(arg, ".vert"):
			opts.VertPath = arg
		case strings.HasSuffix(arg, ".frag"):
			opts.FragPath = arg
		default:
			return opts, fmt.Errorf("unrecognized argument %q", arg)
		}
	}
	if opts.PlyPath == "" {
		return opts, fmt.Errorf("missing point cloud (.ply) path")
	}
	opts.OutDir = filepath.Join(filepath.Dir(opts.PlyPath), "blocks")
	return opts, nil
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: pcview <cloud.ply> [shader.vert] [shader.frag] [--test] [--ooc] [--cache] [--export]")
}

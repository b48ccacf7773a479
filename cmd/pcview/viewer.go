package main

import (
	"fmt"
	"log"
	"math"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-gl/gl/v4.1-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"

	"pcview/internal/camera"
	"pcview/internal/config"
	"pcview/internal/cull"
	"pcview/internal/graphics"
	"pcview/internal/ingest"
	"pcview/internal/loader"
	"pcview/internal/points"
	"pcview/internal/profiling"
	"pcview/internal/slots"
)

// Options are the command-line modes.
type Options struct {
	PlyPath  string
	OutDir   string
	VertPath string
	FragPath string
	Test     bool
	OOC      bool
	Cache    bool
	Export   bool
}

// Viewer owns the render loop and every render-thread structure: blocks,
// slots, subslot cache, camera and GPU state. Workers touch only the job
// and result queues.
type Viewer struct {
	window *glfw.Window
	opts   Options
	cfg    config.Settings

	shader  *graphics.Shader
	dev     *graphics.GLDevice
	overlay *graphics.Overlay

	cam    *camera.Camera
	center mgl32.Vec3
	diag   float32

	blocks []points.Block
	culler *cull.Culler
	pool   *loader.Pool
	table  *slots.Table

	// In-core mode: one buffer per retained block, loaded up front.
	inCore []inCoreBuffer

	showStats  bool
	firstMouse bool
	hasFocus   bool
	lastX      float64
	lastY      float64

	lastFrame time.Time
	fpsAcc    float64
	fpsFrames int
	frameIdx  int

	shutdown sync.Once
}

type inCoreBuffer struct {
	handle uint32
	count  int
}

// NewViewer partitions (or reuses) the input cloud, sets the camera pose
// from the scene bounds, and builds either the out-of-core slot table or
// the in-core per-block buffers.
func NewViewer(window *glfw.Window, opts Options) (*Viewer, error) {
	v := &Viewer{
		window:     window,
		opts:       opts,
		cfg:        config.Get(),
		dev:        graphics.NewGLDevice(),
		firstMouse: true,
		hasFocus:   true,
		lastFrame:  time.Now(),
	}

	blocks, vertexCount, err := v.setupData()
	if err != nil {
		return nil, err
	}
	if len(blocks) == 0 {
		return nil, fmt.Errorf("point cloud %s has no points", opts.PlyPath)
	}
	v.blocks = blocks

	v.setupCameraPose()
	if err := v.setupShader(); err != nil {
		return nil, err
	}
	if err := v.setupEngine(vertexCount); err != nil {
		return nil, err
	}
	v.setupRasterState()
	v.setupInput()
	v.setupOverlay()

	if opts.Export {
		if err := os.MkdirAll(v.cfg.ExportDir, 0o755); err != nil {
			return nil, fmt.Errorf("create export dir: %w", err)
		}
	}
	return v, nil
}

// setupData reuses a matching ingest manifest or runs the two-pass
// partition, then filters empty cells out of the working set.
func (v *Viewer) setupData() ([]points.Block, uint64, error) {
	if m, ok := points.LoadManifest(v.opts.OutDir); ok && m.Matches(v.opts.PlyPath) {
		log.Printf("reusing partition for %s (%d vertices)", m.Source, m.VertexCount)
		all := m.Blocks(v.opts.OutDir)
		v.storeBounds(all)
		return points.Filter(all), m.VertexCount, nil
	}

	if err := ingest.CleanBlockFiles(v.opts.OutDir); err != nil {
		return nil, 0, err
	}
	res, err := ingest.Partition(v.opts.PlyPath, v.opts.OutDir)
	if err != nil {
		return nil, 0, err
	}

	counts := make([]int, points.NumBlocks)
	for i := range res.Blocks {
		counts[i] = res.Blocks[i].Count
	}
	m := points.Manifest{
		Source:      v.opts.PlyPath,
		VertexCount: res.VertexCount,
		BBMin:       [3]float32{res.BBMin[0], res.BBMin[1], res.BBMin[2]},
		BBMax:       [3]float32{res.BBMax[0], res.BBMax[1], res.BBMax[2]},
		Counts:      counts,
	}
	if err := points.WriteManifest(v.opts.OutDir, m); err != nil {
		log.Printf("%v (next run will re-ingest)", err)
	}

	v.storeBounds(res.Blocks)
	return points.Filter(res.Blocks), res.VertexCount, nil
}

func (v *Viewer) storeBounds(all []points.Block) {
	mn := all[0].BBMin
	mx := all[points.NumBlocks-1].BBMax
	v.center = mn.Add(mx).Mul(0.5)
	v.diag = mx.Sub(mn).Len()
	log.Printf("scene bounds %v .. %v", mn, mx)
}

// setupCameraPose puts the camera above and in front of the scene, looking
// at its center.
func (v *Viewer) setupCameraPose() {
	pos := v.center.Add(mgl32.Vec3{0.5 * v.diag, 0.7 * v.diag, 1.0 * v.diag})
	v.cam = camera.New(pos, camera.AxisZ)
	v.cam.ChangePose(pos, v.center)
	v.cam.Speed = v.diag * 0.25
}

func (v *Viewer) setupShader() error {
	shader, err := graphics.NewShader(v.opts.VertPath, v.opts.FragPath)
	if err != nil {
		return err
	}
	v.shader = shader
	shader.Use()
	shader.SetMat4("Model", mgl32.Ident4())
	shader.SetMat4("Proj", v.projection())
	return nil
}

func (v *Viewer) projection() mgl32.Mat4 {
	aspect := float32(v.cfg.WindowWidth) / float32(v.cfg.WindowHeight)
	return mgl32.Perspective(mgl32.DegToRad(v.cfg.FOVDegrees), aspect, v.cfg.ZNear, v.cfg.ZFar)
}

// setupEngine builds the streaming machinery (slot table, subslot cache,
// worker pool) or loads everything in-core when --ooc is off.
func (v *Viewer) setupEngine(vertexCount uint64) error {
	v.culler = cull.New(v.projection(), v.cfg.ZNear, v.cfg.ZFar)

	if !v.opts.OOC {
		return v.loadInCore()
	}

	numSlots := int(config.SlotFactor() * float64(len(v.blocks)))
	if numSlots < 1 {
		numSlots = 1
	}
	subslotCap := int(0.5 * config.SlotFactor() * float64(len(v.blocks)))
	if subslotCap < 1 {
		subslotCap = 1
	}
	pointCap := int(math.Ceil(float64(vertexCount) / float64(len(v.blocks))))

	v.pool = loader.NewPool(config.Workers())
	var cache *slots.SubslotsCache
	if v.opts.Cache {
		cache = slots.NewSubslotsCache(subslotCap)
	}
	table, err := slots.NewTable(v.dev, v.pool, cache, numSlots, pointCap)
	if err != nil {
		return err
	}
	v.table = table
	log.Printf("streaming: %d blocks, %d slots, %d subslots, %d points/slot",
		len(v.blocks), numSlots, subslotCap, pointCap)
	return nil
}

func (v *Viewer) loadInCore() error {
	v.inCore = make([]inCoreBuffer, len(v.blocks))
	for i := range v.blocks {
		b := &v.blocks[i]
		pts, err := points.ReadBlockFile(b.Path, b.Count)
		if err != nil {
			return err
		}
		handle, err := v.dev.CreateVertexBuffer(b.Count * points.PointSize)
		if err != nil {
			return err
		}
		v.dev.UpdateVertexBufferSub(handle, 0, points.AppendPoints(nil, pts))
		v.inCore[i] = inCoreBuffer{handle: handle, count: b.Count}
	}
	log.Printf("in-core: %d blocks resident", len(v.blocks))
	return nil
}

func (v *Viewer) setupRasterState() {
	gl.Viewport(0, 0, int32(v.cfg.WindowWidth), int32(v.cfg.WindowHeight))
	gl.Enable(gl.DEPTH_TEST)
	gl.PointSize(v.cfg.PointSize)
}

func (v *Viewer) setupOverlay() {
	atlas, err := graphics.BakeFontAtlas(v.cfg.FontPath, 16)
	if err != nil {
		log.Printf("stats overlay disabled: %v", err)
		return
	}
	overlay, err := graphics.NewOverlay(atlas)
	if err != nil {
		log.Printf("stats overlay disabled: %v", err)
		return
	}
	v.overlay = overlay
}

// Run drives frames until the window closes.
func (v *Viewer) Run() {
	for !v.window.ShouldClose() {
		v.tick()
	}
}

func (v *Viewer) tick() {
	profiling.ResetFrame()
	now := time.Now()
	dt := float32(now.Sub(v.lastFrame).Seconds())
	v.lastFrame = now

	v.processInput(dt)
	if v.opts.Test {
		v.orbitCamera(dt)
	}

	gl.ClearColor(0.05, 0.05, 0.08, 1.0)
	gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

	v.shader.Use()
	view := v.cam.ViewMatrix()
	v.shader.SetMat4("View", view)

	func() {
		defer profiling.Track("cull.update")()
		v.culler.Update(view, v.blocks)
	}()

	if v.opts.OOC {
		v.tickOOC()
	} else {
		v.tickInCore()
	}

	if v.showStats && v.overlay != nil {
		v.drawStats()
	}
	if v.opts.Export {
		path := filepath.Join(v.cfg.ExportDir, fmt.Sprintf("frame_%05d.png", v.frameIdx))
		if err := graphics.SaveFrame(path, v.cfg.WindowWidth, v.cfg.WindowHeight); err != nil {
			log.Printf("%v", err)
		}
	}

	v.window.SwapBuffers()
	glfw.PollEvents()

	v.frameIdx++
	v.updateFPS(float64(dt))
}

// tickOOC runs one frame of the streaming path: priority sort, slot plan,
// then draw residents and drain this frame's results.
func (v *Viewer) tickOOC() {
	func() {
		defer profiling.Track("slots.plan")()
		cull.SortByPriority(v.blocks, config.PriorityByFrustum())
		v.table.PlanAndLoad(v.blocks)
	}()
	func() {
		defer profiling.Track("slots.draw")()
		v.table.DrawFrame(v.blocks)
	}()
}

func (v *Viewer) tickInCore() {
	defer profiling.Track("incore.draw")()
	for i := range v.blocks {
		if v.blocks[i].Visible {
			v.dev.DrawPoints(v.inCore[i].handle, v.inCore[i].count)
		}
	}
}

// orbitCamera circles the scene center about the Z axis at the configured
// angular speed, always facing the center.
func (v *Viewer) orbitCamera(dt float32) {
	theta := mgl32.DegToRad(v.cfg.OrbitDegPerSec) * dt
	offset := v.cam.Position.Sub(v.center)
	v.cam.ChangePose(v.center.Add(camera.Orbit(offset, theta)), v.center)
}

func (v *Viewer) drawStats() {
	line := v.overlay.LineHeight() + 4
	y := line
	white := mgl32.Vec3{1, 1, 1}
	if v.table != nil {
		s := v.table.Stats
		v.overlay.DrawText(fmt.Sprintf("hits %d  misses %d  loaded %d  cached %d",
			s.Hits, s.Misses, s.Loaded, s.Cached), 8, y, white, v.cfg.WindowWidth, v.cfg.WindowHeight)
		y += line
	}
	v.overlay.DrawText(profiling.TopN(4), 8, y, white, v.cfg.WindowWidth, v.cfg.WindowHeight)
}

func (v *Viewer) updateFPS(dt float64) {
	v.fpsAcc += dt
	v.fpsFrames++
	if v.fpsAcc > 1.0 {
		fps := float64(v.fpsFrames) / v.fpsAcc
		v.window.SetTitle(fmt.Sprintf("pcview | FPS: %.1f", fps))
		v.fpsAcc = 0
		v.fpsFrames = 0
	}
}

// Shutdown stops the job queue, joins the workers, and stops the result
// queue. Safe to call more than once; bound to the process closer.
func (v *Viewer) Shutdown() {
	v.shutdown.Do(func() {
		if v.pool != nil {
			v.pool.Shutdown()
		}
	})
}

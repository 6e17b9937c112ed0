package main

import (
	"context"
	"fmt"
	"image"
	"os"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
	"github.com/phanxgames/marionette"
	"github.com/phanxgames/marionette/archive"
	"github.com/phanxgames/marionette/ebitenrender"
)

const checkerSize = 8

// game plays one animation of a project archive.
type game struct {
	cfg    Config
	editor *marionette.Editor
	r      *ebitenrender.Renderer
	watch  *watcher

	canvas  *ebiten.Image
	checker *ebiten.Image
	op      ebiten.DrawImageOptions

	script *marionette.ScriptRunner
	tools  marionette.ToolContext

	status string
	shot   bool
}

func newGame(cfg Config) (*game, error) {
	r := ebitenrender.New()
	ecfg := marionette.DefaultConfig()
	ecfg.X3Preview = cfg.X3
	ecfg.Debug = cfg.Debug
	g := &game{
		cfg:    cfg,
		r:      r,
		editor: marionette.NewEditor(ecfg, r, nil),
	}
	g.tools = marionette.ToolContext{Editor: g.editor, SnapToPixel: true}
	if err := g.load(); err != nil {
		return nil, err
	}
	if cfg.Script != "" {
		data, err := os.ReadFile(cfg.Script)
		if err != nil {
			return nil, err
		}
		if g.script, err = marionette.LoadScript(data); err != nil {
			return nil, err
		}
	}
	if cfg.Watch {
		w, err := watchFile(cfg.Archive)
		if err != nil {
			return nil, err
		}
		g.watch = w
	}
	return g, nil
}

// load reads the archive and starts playback. On error the previous
// document stays loaded.
func (g *game) load() error {
	data, err := os.ReadFile(g.cfg.Archive)
	if err != nil {
		return err
	}
	if err := g.editor.Open(context.Background(), archive.Zip{}, data); err != nil {
		return err
	}
	p := g.editor.Project()
	if g.canvas == nil || g.canvas.Bounds().Dx() != p.Width() || g.canvas.Bounds().Dy() != p.Height() {
		if g.canvas != nil {
			g.canvas.Deallocate()
			g.checker.Deallocate()
		}
		g.canvas = ebiten.NewImage(p.Width(), p.Height())
		g.checker = ebiten.NewImageFromImage(checkerImage(p.Width(), p.Height(), p.Background()))
	} else {
		g.checker.WritePixels(checkerImage(p.Width(), p.Height(), p.Background()).Pix)
	}

	id, err := findAnimation(p, g.cfg.Animation)
	if err != nil {
		return err
	}
	if id == marionette.NoID {
		g.status = "no animation"
		return nil
	}
	if err := g.editor.SelectAnimation(id); err != nil {
		return err
	}
	if err := g.editor.Play(); err != nil {
		g.status = err.Error()
		return nil
	}
	g.status = ""
	return nil
}

// findAnimation returns the animation called name, the first animation
// when name is empty, or NoID when there is none.
func findAnimation(p *marionette.Project, name string) (marionette.ID, error) {
	ids := p.Animations()
	if name == "" {
		if len(ids) == 0 {
			return marionette.NoID, nil
		}
		return ids[0], nil
	}
	for _, id := range ids {
		if a, err := p.Animation(id); err == nil && a.Name == name {
			return id, nil
		}
	}
	return marionette.NoID, fmt.Errorf("no animation named %q: %w", name, marionette.ErrNotFound)
}

// checkerImage renders the two-tone transparency background.
func checkerImage(w, h int, bg marionette.BackgroundColors) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	c1, c2 := bg.Color1.RGBA(), bg.Color2.RGBA()
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			c := c1
			if (x/checkerSize+y/checkerSize)%2 == 1 {
				c = c2
			}
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func (g *game) Update() error {
	if g.watch != nil {
		select {
		case <-g.watch.Changed():
			if err := g.load(); err != nil {
				g.status = "reload: " + err.Error()
			}
		default:
		}
	}

	if g.script != nil {
		if err := g.script.Step(&g.tools); err != nil {
			g.status = err.Error()
			g.script = nil
		} else if g.script.Done() {
			g.script = nil
		}
	}

	e := g.editor
	switch {
	case inpututil.IsKeyJustPressed(ebiten.KeySpace):
		if e.Player().Playing() {
			e.Stop()
		} else if err := e.Play(); err != nil {
			g.status = err.Error()
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyLeft):
		e.Stop()
		e.SetCurrentFrame(e.CurrentFrame() - 1)
	case inpututil.IsKeyJustPressed(ebiten.KeyRight):
		e.Stop()
		e.SetCurrentFrame(e.CurrentFrame() + 1)
	case inpututil.IsKeyJustPressed(ebiten.KeyL):
		if err := e.ToggleAnimationLoop(e.SelectedAnimation()); err != nil {
			g.status = err.Error()
		}
	case inpututil.IsKeyJustPressed(ebiten.KeyP):
		g.shot = true
	}

	before := e.CurrentFrame()
	e.Update(float32(1.0 / float64(ebiten.TPS())))
	if e.CurrentFrame() != before {
		g.expirePosedFolders()
	}
	return nil
}

// expirePosedFolders re-composites every folder holding a layer driven by
// a bone, since the pose is applied while compositing.
func (g *game) expirePosedFolders() {
	p := g.editor.Project()
	for layer := range p.VisibleLayerBoneMap() {
		if l, err := p.Layer(layer); err == nil && l.Parent() != marionette.NoID {
			p.MarkLayerAsShouldReRender(l.Parent())
		}
	}
}

func (g *game) Draw(screen *ebiten.Image) {
	scale := float64(g.cfg.Scale)
	g.op.GeoM.Reset()
	g.op.GeoM.Scale(scale, scale)
	screen.DrawImage(g.checker, &g.op)

	var err error
	if g.cfg.X3 {
		g.r.SetScreen(screen)
		err = g.drawX3(scale / 3)
	} else {
		g.canvas.Clear()
		g.r.SetScreen(g.canvas)
		err = g.drawPosed()
		screen.DrawImage(g.canvas, &g.op)
	}
	g.r.SetScreen(nil)
	if err != nil {
		g.status = err.Error()
	}

	if g.shot {
		g.shot = false
		label := g.editor.Project().Name()
		if path, err := saveScreenshot(g.cfg.ScreenshotDir, label, ebitenrender.ToNRGBA(screen), time.Now()); err != nil {
			_, _ = fmt.Fprintf(os.Stderr, "[marionette-view] %v\n", err)
		} else {
			g.status = "saved " + path
		}
	}

	ebitenutil.DebugPrint(screen, fmt.Sprintf("frame %d  %s", g.editor.CurrentFrame(), g.status))
}

func (g *game) drawPosed() error {
	p := g.editor.Project()
	var hook marionette.DrawHook
	if a := g.editor.SelectedAnimation(); a != marionette.NoID {
		h, err := p.PoseHook(a, g.editor.CurrentFrame())
		if err != nil {
			return err
		}
		hook = h
	}
	return p.RenderLayers(marionette.NoID, hook)
}

// drawX3 draws the x3 textures of the top-level layers, back to front.
func (g *game) drawX3(scale float64) error {
	p := g.editor.Project()
	ids := p.Layers()
	for i := len(ids) - 1; i >= 0; i-- {
		l, err := p.Layer(ids[i])
		if err != nil {
			return err
		}
		if !l.Visible {
			continue
		}
		tex, err := p.X3LayerTexture(l.ID)
		if err != nil {
			return err
		}
		a := float64(l.Opacity) / 100
		g.r.DrawTexture(tex, marionette.DrawOptions{
			Transform: marionette.Mat33{{scale, 0, 0}, {0, scale, 0}, {0, 0, 1}},
			Color:     marionette.Color{R: a, G: a, B: a, A: a},
			Shader:    marionette.ShaderMultiplyAlpha,
		})
	}
	return nil
}

func (g *game) Layout(_, _ int) (int, int) {
	p := g.editor.Project()
	return p.Width() * g.cfg.Scale, p.Height() * g.cfg.Scale
}

func (g *game) Close() {
	if g.watch != nil {
		_ = g.watch.Close()
	}
	g.r.Dispose()
}

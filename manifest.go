package marionette

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image"
	"image/png"
	"maps"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/h2non/filetype"
	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// ManifestName is the archive entry holding the document JSON.
const ManifestName = "project.json"

// ImageDir is the archive directory holding one PNG per raster layer.
const ImageDir = "images/"

// DefaultProjectName is used when a manifest carries no name.
const DefaultProjectName = "Untitled"

// ArchiveCodec packs a manifest and named blobs into one container and back.
type ArchiveCodec interface {
	Encode(manifest []byte, blobs map[string][]byte) ([]byte, error)
	Decode(data []byte) (manifest []byte, blobs map[string][]byte, err error)
}

type manifest struct {
	IDCount         *ID             `json:"idCount"`
	Name            string          `json:"name"`
	Width           *int            `json:"width"`
	Height          *int            `json:"height"`
	Layers          []layerJSON     `json:"layers"`
	Bones           *boneJSON       `json:"bones,omitempty"`
	Animations      []animationJSON `json:"animations"`
	BackgroundColor *backgroundJSON `json:"backgroundColor,omitempty"`
}

type layerJSON struct {
	ID       ID          `json:"id"`
	Name     string      `json:"name"`
	Opacity  int         `json:"opacity"`
	Visible  bool        `json:"visible"`
	IsFolder bool        `json:"isFolder"`
	Children []layerJSON `json:"children,omitempty"`
	Expanded *bool       `json:"expanded,omitempty"`
}

type vecJSON struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

type boneJSON struct {
	ID           ID         `json:"id"`
	Name         string     `json:"name"`
	ParentID     *ID        `json:"parentId,omitempty"`
	Expanded     bool       `json:"expanded"`
	Children     []boneJSON `json:"children"`
	LayerID      *ID        `json:"layerId"`
	Position     *vecJSON   `json:"position"`
	Rotation     float64    `json:"rotation"`
	Length       float64    `json:"length"`
	Visible      *bool      `json:"visible,omitempty"`
	BoneVisible  *bool      `json:"boneVisible,omitempty"`
	ImageVisible *bool      `json:"imageVisible,omitempty"`
}

type keyframeJSON struct {
	FrameIndex int                  `json:"frameIndex"`
	Transform  map[ID]BoneTransform `json:"transform"`
}

type animationJSON struct {
	ID       ID             `json:"id"`
	Name     string         `json:"name"`
	FPS      int            `json:"fps"`
	Loop     bool           `json:"loop"`
	Timeline []keyframeJSON `json:"timeline"`
}

type backgroundJSON struct {
	Color1 uint32 `json:"color1"`
	Color2 uint32 `json:"color2"`
}

// --- Save ---

// Manifest returns the document JSON. Keyframe transforms of bones that no
// longer exist are left out.
func (p *Project) Manifest() ([]byte, error) {
	idCount, width, height := p.idCount, p.width, p.height
	m := manifest{
		IDCount:    &idCount,
		Name:       p.name,
		Width:      &width,
		Height:     &height,
		Layers:     p.layersJSON(p.layers),
		Bones:      p.boneJSON(p.root),
		Animations: make([]animationJSON, 0, len(p.animations)),
		BackgroundColor: &backgroundJSON{
			Color1: p.background.Color1.Hex(),
			Color2: p.background.Color2.Hex(),
		},
	}
	for _, id := range p.animations {
		a := p.animationMap[id]
		aj := animationJSON{ID: a.ID, Name: a.Name, FPS: a.FPS, Loop: a.Loop, Timeline: make([]keyframeJSON, 0, len(a.Timeline))}
		for _, k := range a.Timeline {
			kj := keyframeJSON{FrameIndex: k.Frame, Transform: make(map[ID]BoneTransform, len(k.Transforms))}
			for bone, t := range k.Transforms {
				if _, ok := p.boneMap[bone]; ok {
					kj.Transform[bone] = t
				}
			}
			aj.Timeline = append(aj.Timeline, kj)
		}
		m.Animations = append(m.Animations, aj)
	}
	return json.Marshal(m)
}

func (p *Project) layersJSON(ids []ID) []layerJSON {
	ret := make([]layerJSON, 0, len(ids))
	for _, id := range ids {
		l := p.layerMap[id]
		lj := layerJSON{ID: l.ID, Name: l.Name, Opacity: l.Opacity, Visible: l.Visible, IsFolder: l.IsFolder()}
		if l.IsFolder() {
			expanded := l.Expanded
			lj.Expanded = &expanded
			lj.Children = p.layersJSON(l.children)
		}
		ret = append(ret, lj)
	}
	return ret
}

func (p *Project) boneJSON(b *Bone) *boneJSON {
	bj := &boneJSON{
		ID:           b.ID,
		Name:         b.Name,
		Expanded:     b.Expanded,
		Children:     make([]boneJSON, 0, len(b.children)),
		Rotation:     b.Rotation,
		Length:       b.Length,
		Visible:      &b.Visible,
		BoneVisible:  &b.GizmoVisible,
		ImageVisible: &b.ImageVisible,
	}
	if b.parent != NoID {
		parent := b.parent
		bj.ParentID = &parent
	}
	if b.LayerID != NoID {
		layer := b.LayerID
		bj.LayerID = &layer
	}
	if b.Pivot != nil {
		bj.Position = &vecJSON{X: b.Pivot.X, Y: b.Pivot.Y}
	}
	for _, id := range b.children {
		bj.Children = append(bj.Children, *p.boneJSON(p.boneMap[id]))
	}
	return bj
}

// encodePNG writes a straight-alpha buffer as an NRGBA PNG.
func encodePNG(pix []byte, width, height int) ([]byte, error) {
	img := &image.NRGBA{Pix: pix, Stride: width * 4, Rect: image.Rect(0, 0, width, height)}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// Save serializes the document through codec. It refuses while the
// renderer has an open capture, since a render is then in progress.
func (p *Project) Save(codec ArchiveCodec) ([]byte, error) {
	if p.renderer != nil && p.renderer.CaptureDepth() > 0 {
		return nil, fmt.Errorf("marionette: save during capture: %w", ErrInvalidState)
	}
	m, err := p.Manifest()
	if err != nil {
		return nil, fmt.Errorf("marionette: save manifest: %w", err)
	}
	blobs := make(map[string][]byte, len(p.pixels))
	for _, id := range slices.Sorted(maps.Keys(p.pixels)) {
		data, err := encodePNG(p.pixels[id], p.width, p.height)
		if err != nil {
			return nil, fmt.Errorf("marionette: save image of layer %d: %w", id, err)
		}
		blobs[imageName(id)] = data
	}
	return codec.Encode(m, blobs)
}

func imageName(id ID) string { return ImageDir + strconv.Itoa(int(id)) + ".png" }

// --- Read ---

func loadErr(format string, args ...any) error {
	return fmt.Errorf("marionette: load: %s: %w", fmt.Sprintf(format, args...), ErrLoad)
}

// Read replaces the document with the archive in data. The archive is
// decoded and validated completely, images included, before anything is
// touched; on any failure the error wraps ErrLoad and the live document is
// unchanged. Images are decoded concurrently and scaled to the canvas when
// their size differs.
func (p *Project) Read(ctx context.Context, codec ArchiveCodec, data []byte) error {
	raw, blobs, err := codec.Decode(data)
	if err != nil {
		return loadErr("decode archive: %v", err)
	}
	var m manifest
	if err := json.Unmarshal(raw, &m); err != nil {
		return loadErr("parse manifest: %v", err)
	}
	if m.IDCount == nil || m.Width == nil || m.Height == nil || len(m.Layers) == 0 {
		return loadErr("manifest missing idCount, width, height or layers")
	}
	width, height := *m.Width, *m.Height
	if width <= 0 || height <= 0 {
		return loadErr("canvas size %dx%d", width, height)
	}

	staged := &Project{renderer: p.renderer, debug: p.debug}
	staged.init(m.Name, width, height)
	if staged.name == "" {
		staged.name = DefaultProjectName
	}
	staged.idCount = *m.IDCount

	var rasters []ID
	if err := staged.readLayers(m.Layers, NoID, &rasters); err != nil {
		return err
	}
	if m.Bones != nil {
		if err := staged.readBones(m.Bones); err != nil {
			return err
		}
	}
	for _, aj := range m.Animations {
		if err := staged.readAnimation(aj); err != nil {
			return err
		}
	}
	if m.BackgroundColor != nil {
		staged.background = BackgroundColors{
			Color1: ColorFromHex(m.BackgroundColor.Color1),
			Color2: ColorFromHex(m.BackgroundColor.Color2),
		}
	}
	if err := staged.checkIDs(); err != nil {
		return err
	}

	pixels, err := decodeImages(ctx, rasters, blobs, width, height)
	if err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return loadErr("%v", err)
	}
	staged.pixels = pixels

	// Swap. Only cache state survives from the old document, and it is
	// released here.
	p.disposeAllRenderCaches()
	*p = *staged
	p.FillKeyframesMissingBoneTransform()
	p.shouldReRender = true
	return nil
}

func (p *Project) readLayers(list []layerJSON, parent ID, rasters *[]ID) error {
	for _, lj := range list {
		if lj.ID <= 0 {
			return loadErr("layer id %d", lj.ID)
		}
		if _, dup := p.layerMap[lj.ID]; dup {
			return loadErr("duplicate layer id %d", lj.ID)
		}
		kind := KindRaster
		if lj.IsFolder {
			kind = KindFolder
		}
		l := newLayer(lj.ID, lj.Name, kind, parent)
		l.Opacity = min(max(lj.Opacity, 0), 100)
		l.Visible = lj.Visible
		if lj.Expanded != nil {
			l.Expanded = *lj.Expanded
		}
		c := p.layerContainer(parent)
		*c = append(*c, l.ID)
		p.layerMap[l.ID] = l
		if lj.IsFolder {
			if err := p.readLayers(lj.Children, l.ID, rasters); err != nil {
				return err
			}
		} else {
			*rasters = append(*rasters, l.ID)
		}
	}
	return nil
}

func (p *Project) readBones(root *boneJSON) error {
	// The root entry only carries the top-level bones; its own fields are
	// fixed.
	p.root.Expanded = root.Expanded
	for i := range root.Children {
		if err := p.readBone(&root.Children[i], RootBoneID); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) readBone(bj *boneJSON, parent ID) error {
	if bj.ID <= 0 {
		return loadErr("bone id %d", bj.ID)
	}
	if _, dup := p.boneMap[bj.ID]; dup {
		return loadErr("duplicate bone id %d", bj.ID)
	}
	b := newBone(bj.ID, bj.Name, parent)
	b.Expanded = bj.Expanded
	if bj.LayerID != nil {
		b.LayerID = *bj.LayerID
	}
	if bj.Position != nil {
		b.Pivot = &Vec2{X: bj.Position.X, Y: bj.Position.Y}
	}
	b.Rotation = bj.Rotation
	b.Length = bj.Length
	if bj.Visible != nil {
		b.Visible = *bj.Visible
	}
	if bj.BoneVisible != nil {
		b.GizmoVisible = *bj.BoneVisible
	}
	if bj.ImageVisible != nil {
		b.ImageVisible = *bj.ImageVisible
	}
	pb := p.mustBone(parent)
	pb.children = append(pb.children, b.ID)
	p.boneMap[b.ID] = b
	for i := range bj.Children {
		if err := p.readBone(&bj.Children[i], b.ID); err != nil {
			return err
		}
	}
	return nil
}

func (p *Project) readAnimation(aj animationJSON) error {
	if aj.ID <= 0 {
		return loadErr("animation id %d", aj.ID)
	}
	if _, dup := p.animationMap[aj.ID]; dup {
		return loadErr("duplicate animation id %d", aj.ID)
	}
	a := &Animation{ID: aj.ID, Name: aj.Name, FPS: aj.FPS, Loop: aj.Loop}
	if a.FPS <= 0 {
		a.FPS = DefaultFPS
	}
	for _, kj := range aj.Timeline {
		if kj.FrameIndex < 0 {
			return loadErr("animation %d: keyframe at frame %d", aj.ID, kj.FrameIndex)
		}
		k := &Keyframe{Frame: kj.FrameIndex, Transforms: cloneTransforms(kj.Transform)}
		if !a.insertKeyframe(k) {
			return loadErr("animation %d: duplicate keyframe at frame %d", aj.ID, kj.FrameIndex)
		}
	}
	p.animations = append(p.animations, a.ID)
	p.animationMap[a.ID] = a
	return nil
}

// checkIDs verifies that ids are unique across kinds and that no id is
// above idCount. Bone layer references that do not resolve are cleared.
func (p *Project) checkIDs() error {
	seen := make(map[ID]string, len(p.layerMap)+len(p.boneMap)+len(p.animationMap))
	check := func(id ID, kind string) error {
		if prev, ok := seen[id]; ok {
			return loadErr("id %d used by both a %s and a %s", id, prev, kind)
		}
		if id > p.idCount {
			return loadErr("%s id %d above idCount %d", kind, id, p.idCount)
		}
		seen[id] = kind
		return nil
	}
	for id := range p.layerMap {
		if err := check(id, "layer"); err != nil {
			return err
		}
	}
	for id, b := range p.boneMap {
		if err := check(id, "bone"); err != nil {
			return err
		}
		if _, ok := p.layerMap[b.LayerID]; !ok {
			b.LayerID = NoID
		}
	}
	for id := range p.animationMap {
		if err := check(id, "animation"); err != nil {
			return err
		}
	}
	return nil
}

// decodeImages decodes the PNG of every raster layer concurrently into
// straight-alpha buffers of the canvas size.
func decodeImages(ctx context.Context, rasters []ID, blobs map[string][]byte, width, height int) (map[ID][]byte, error) {
	byName := make(map[string][]byte, len(blobs))
	for name, data := range blobs {
		byName[strings.ToLower(name)] = data
	}

	var mu sync.Mutex
	pixels := make(map[ID][]byte, len(rasters))
	g, ctx := errgroup.WithContext(ctx)
	for _, id := range rasters {
		data, ok := byName[imageName(id)]
		if !ok {
			return nil, loadErr("missing image for layer %d", id)
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return loadErr("%v", err)
			}
			pix, err := decodeLayerImage(data, width, height)
			if err != nil {
				return loadErr("image of layer %d: %v", id, err)
			}
			mu.Lock()
			pixels[id] = pix
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return pixels, nil
}

func decodeLayerImage(data []byte, width, height int) ([]byte, error) {
	if !filetype.Is(data, "png") {
		return nil, errors.New("not a png")
	}
	src, err := png.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, err
	}
	dst := image.NewNRGBA(image.Rect(0, 0, width, height))
	if n, ok := src.(*image.NRGBA); ok && n.Rect == dst.Rect {
		// Straight-alpha source of the right size: copy rows as is so
		// that color under zero alpha survives.
		for y := 0; y < height; y++ {
			copy(dst.Pix[y*dst.Stride:y*dst.Stride+width*4], n.Pix[y*n.Stride:])
		}
		return dst.Pix, nil
	}
	if src.Bounds().Dx() == width && src.Bounds().Dy() == height {
		draw.Copy(dst, image.Point{}, src, src.Bounds(), draw.Src, nil)
	} else {
		draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	}
	return dst.Pix, nil
}

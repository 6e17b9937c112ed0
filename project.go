package marionette

import (
	"strconv"
	"strings"
)

// Project is the document aggregate: it owns every layer, bone and
// animation, the pixel store, the id counter and the render caches.
//
// Entities are kept in an arena keyed by ID. Parents are stored as IDs and
// containers as ordered ID slices, so nothing holds a pointer that could go
// stale across undo and redo. Pointers returned by lookups are valid until
// the next structural mutation; re-resolve by ID after that.
//
// A Project is not safe for concurrent use.
type Project struct {
	name          string
	width, height int
	background    BackgroundColors

	idCount ID
	// nameSeq is the highest default-name number issued per prefix, so a
	// freed number is never handed out again within a session.
	nameSeq map[string]int

	layers   []ID
	layerMap map[ID]*Layer
	pixels   map[ID][]byte

	root    *Bone
	boneMap map[ID]*Bone

	animations   []ID
	animationMap map[ID]*Animation

	renderer       Renderer
	textures       map[ID]*TextureCache
	surfaces       map[ID]*SurfaceCache
	x3Textures     map[ID]*TextureCache
	shouldReRender bool

	debug       bool
	renderDepth int
	stats       renderStats
}

// NewProject creates an empty document of the given canvas size. It has no
// layers or animations; use CreateNew for the editor's default document.
// The renderer may be nil for headless use, in which case texture queries
// fail with ErrInvalidState.
func NewProject(name string, width, height int, r Renderer) *Project {
	p := &Project{renderer: r}
	p.init(name, width, height)
	return p
}

// init drops every entity, pixel buffer and render cache and resets the
// document to an empty canvas. The id counter is reset too.
func (p *Project) init(name string, width, height int) {
	p.disposeAllRenderCaches()
	p.name = name
	p.width = width
	p.height = height
	p.background = DefaultBackgroundColors
	p.idCount = 0
	p.nameSeq = make(map[string]int)
	p.layers = nil
	p.layerMap = make(map[ID]*Layer)
	p.pixels = make(map[ID][]byte)
	p.root = newBone(RootBoneID, "root", NoID)
	p.boneMap = make(map[ID]*Bone)
	p.animations = nil
	p.animationMap = make(map[ID]*Animation)
	p.textures = make(map[ID]*TextureCache)
	p.surfaces = make(map[ID]*SurfaceCache)
	p.x3Textures = make(map[ID]*TextureCache)
	p.shouldReRender = true
}

// CreateNew resets the document and adds one empty layer and one animation.
func (p *Project) CreateNew(name string, width, height int) {
	p.init(name, width, height)
	_, _ = p.AddLayer(NoID)
	p.AddAnimation()
}

// Name returns the document name.
func (p *Project) Name() string { return p.name }

// SetName renames the document.
func (p *Project) SetName(name string) { p.name = name }

// Width returns the canvas width in pixels.
func (p *Project) Width() int { return p.width }

// Height returns the canvas height in pixels.
func (p *Project) Height() int { return p.height }

// IDCount returns the last issued id.
func (p *Project) IDCount() ID { return p.idCount }

// Background returns the checkerboard colors.
func (p *Project) Background() BackgroundColors { return p.background }

// SetBackground changes the checkerboard colors and requests a redraw.
func (p *Project) SetBackground(bg BackgroundColors) {
	p.background = bg
	p.shouldReRender = true
}

// Renderer returns the renderer the project draws with, or nil.
func (p *Project) Renderer() Renderer { return p.renderer }

// SetDebugMode enables per-render stats and tree-depth warnings on stderr.
func (p *Project) SetDebugMode(enabled bool) { p.debug = enabled }

func (p *Project) nextID() ID {
	p.idCount++
	return p.idCount
}

// availableName returns prefix followed by one more than the highest number
// seen under prefix, either among the current names or issued earlier.
func (p *Project) availableName(prefix string, names []string) string {
	high := p.nameSeq[prefix]
	for _, name := range names {
		if !strings.HasPrefix(name, prefix) {
			continue
		}
		if n, err := strconv.Atoi(name[len(prefix):]); err == nil && n > high {
			high = n
		}
	}
	high++
	p.nameSeq[prefix] = high
	return prefix + strconv.Itoa(high)
}

// --- ID slice helpers ---

func indexOfID(ids []ID, id ID) int {
	for i, v := range ids {
		if v == id {
			return i
		}
	}
	return -1
}

// insertID inserts id at index, clamping index into [0, len].
func insertID(ids []ID, index int, id ID) []ID {
	if index < 0 {
		index = 0
	}
	if index > len(ids) {
		index = len(ids)
	}
	ids = append(ids, 0)
	copy(ids[index+1:], ids[index:])
	ids[index] = id
	return ids
}

// removeID removes id and returns the new slice and the index it held,
// or -1 if it was absent.
func removeID(ids []ID, id ID) ([]ID, int) {
	i := indexOfID(ids, id)
	if i < 0 {
		return ids, -1
	}
	copy(ids[i:], ids[i+1:])
	return ids[:len(ids)-1], i
}

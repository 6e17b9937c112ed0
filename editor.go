package marionette

import (
	"context"
	"regexp"
)

// EventKind identifies what happened to the document.
type EventKind uint8

const (
	EventChanged  EventKind = iota // a recorded command ran
	EventUndo                      // a step was undone
	EventRedo                      // a step was redone
	EventNavigate                  // the active workspace changed
	EventCreated                   // a new document replaced the old one
	EventOpened                    // a document was read from an archive
	EventSaved                     // the document was written to an archive
)

func (k EventKind) String() string {
	switch k {
	case EventChanged:
		return "changed"
	case EventUndo:
		return "undo"
	case EventRedo:
		return "redo"
	case EventNavigate:
		return "navigate"
	case EventCreated:
		return "created"
	case EventOpened:
		return "opened"
	case EventSaved:
		return "saved"
	default:
		return "unknown"
	}
}

// DocumentEvent is published to the editor's EventSink after each change.
type DocumentEvent struct {
	Kind      EventKind
	Workspace Workspace
	// Dirty mirrors History.Dirty after the change.
	Dirty bool
}

// EventSink receives document events, e.g. to refresh UI panels.
type EventSink interface {
	Publish(ev DocumentEvent)
}

// Editor is the application context: it owns the document, its history,
// the active workspace and the current selection, and runs every
// user-facing mutation as a recorded command.
//
// An Editor is not safe for concurrent use.
type Editor struct {
	cfg       Config
	project   *Project
	history   *History
	workspace Workspace
	sink      EventSink
	player    *Player

	// AutoNaming renames a bone after the layer it is bound to.
	AutoNaming bool

	layer     ID
	bone      ID
	animation ID
	frame     int
}

// NewEditor creates an editor holding a default document built from cfg.
// r and sink may be nil.
func NewEditor(cfg Config, r Renderer, sink EventSink) *Editor {
	e := &Editor{
		cfg:       cfg,
		project:   New(cfg, r),
		workspace: WorkspacePaint,
		sink:      sink,
	}
	e.history = NewHistory(cfg.HistoryLimit, e)
	e.player = NewPlayer(e.project)
	e.resetSelection()
	return e
}

// Project returns the document.
func (e *Editor) Project() *Project { return e.project }

// History returns the undo/redo history.
func (e *Editor) History() *History { return e.history }

// Player returns the animation player.
func (e *Editor) Player() *Player { return e.player }

// Workspace returns the active workspace.
func (e *Editor) Workspace() Workspace { return e.workspace }

// Navigate switches the active workspace. It implements Navigator.
func (e *Editor) Navigate(ws Workspace) {
	if ws == e.workspace {
		return
	}
	e.player.Stop()
	e.workspace = ws
	e.publish(EventNavigate)
}

// SetSink replaces the event sink. nil disables events.
func (e *Editor) SetSink(sink EventSink) { e.sink = sink }

func (e *Editor) publish(kind EventKind) {
	if e.sink == nil {
		return
	}
	e.sink.Publish(DocumentEvent{Kind: kind, Workspace: e.workspace, Dirty: e.history.Dirty()})
}

// --- Selection ---

// SelectedLayer returns the current layer or folder, or NoID.
func (e *Editor) SelectedLayer() ID { return e.layer }

// SelectLayer makes id the current layer. NoID clears the selection.
func (e *Editor) SelectLayer(id ID) error {
	if id != NoID {
		if _, err := e.project.Layer(id); err != nil {
			return err
		}
	}
	e.layer = id
	return nil
}

// SelectedBone returns the current bone, or NoID.
func (e *Editor) SelectedBone() ID { return e.bone }

// SelectBone makes id the current bone. NoID clears the selection.
func (e *Editor) SelectBone(id ID) error {
	if id != NoID {
		if _, err := e.project.Bone(id); err != nil {
			return err
		}
	}
	e.bone = id
	return nil
}

// SelectedAnimation returns the current animation, or NoID.
func (e *Editor) SelectedAnimation() ID { return e.animation }

// SelectAnimation makes id the current animation. NoID clears the
// selection.
func (e *Editor) SelectAnimation(id ID) error {
	if id != NoID {
		if _, err := e.project.Animation(id); err != nil {
			return err
		}
	}
	e.player.Stop()
	e.animation = id
	return nil
}

// CurrentFrame returns the timeline cursor.
func (e *Editor) CurrentFrame() int { return e.frame }

// SetCurrentFrame moves the timeline cursor. Negative frames clamp to 0.
func (e *Editor) SetCurrentFrame(frame int) {
	e.frame = max(frame, 0)
	e.project.RequestReRender()
}

func (e *Editor) resetSelection() {
	e.layer, e.bone, e.animation, e.frame = NoID, NoID, NoID, 0
	if ids := e.project.Layers(); len(ids) > 0 {
		e.layer = ids[0]
	}
	if ids := e.project.Animations(); len(ids) > 0 {
		e.animation = ids[0]
	}
}

// --- Document lifecycle ---

// NewDocument replaces the document with a default one and clears the
// history.
func (e *Editor) NewDocument(name string, width, height int) {
	e.player.Stop()
	e.project.CreateNew(name, width, height)
	e.history.Clear()
	e.resetSelection()
	e.publish(EventCreated)
}

// Open reads an archive into the document and clears the history. On error
// the current document and history are kept.
func (e *Editor) Open(ctx context.Context, codec ArchiveCodec, data []byte) error {
	e.player.Stop()
	if err := e.project.Read(ctx, codec, data); err != nil {
		return err
	}
	e.history.Clear()
	e.resetSelection()
	if e.cfg.X3Preview && e.project.Renderer() != nil {
		if err := e.project.PreRenderX3Textures(); err != nil {
			return err
		}
	}
	e.publish(EventOpened)
	return nil
}

// Save writes the document and marks the history clean.
func (e *Editor) Save(codec ArchiveCodec) ([]byte, error) {
	data, err := e.project.Save(codec)
	if err != nil {
		return nil, err
	}
	e.history.MarkClean()
	e.publish(EventSaved)
	return data, nil
}

var unsafeFileChars = regexp.MustCompile("[-!$%^&*()+|~=`{}\\[\\]:\";'<>?,./]")

// SaveFileName returns the archive file name for the document: its name
// with punctuation replaced by underscores, plus ".zip".
func (e *Editor) SaveFileName() string {
	name := unsafeFileChars.ReplaceAllString(e.project.Name(), "_")
	if name == "" {
		name = DefaultProjectName
	}
	return name + ".zip"
}

// Undo reverts the last step and navigates to its workspace.
func (e *Editor) Undo() (bool, error) {
	e.player.Stop()
	ok, err := e.history.Undo()
	if ok {
		e.reconcileSelection()
		e.publish(EventUndo)
	}
	return ok, err
}

// Redo reapplies the last undone step and navigates to its workspace.
func (e *Editor) Redo() (bool, error) {
	e.player.Stop()
	ok, err := e.history.Redo()
	if ok {
		e.reconcileSelection()
		e.publish(EventRedo)
	}
	return ok, err
}

// reconcileSelection drops selections whose entity no longer exists.
func (e *Editor) reconcileSelection() {
	if _, err := e.project.Layer(e.layer); err != nil {
		e.layer = NoID
	}
	if _, err := e.project.Bone(e.bone); err != nil {
		e.bone = NoID
	}
	if _, err := e.project.Animation(e.animation); err != nil {
		e.animation = NoID
	}
}

// Update advances playback by dt seconds and moves the timeline cursor
// with it. Hosts call it once per tick.
func (e *Editor) Update(dt float32) {
	if !e.player.Playing() {
		return
	}
	frame, _ := e.player.Update(dt)
	e.SetCurrentFrame(frame)
}

// Play starts playback of the selected animation from frame 0.
func (e *Editor) Play() error {
	if err := e.player.Play(e.animation); err != nil {
		return err
	}
	e.SetCurrentFrame(0)
	return nil
}

// Stop halts playback, leaving the cursor where it is.
func (e *Editor) Stop() { e.player.Stop() }

// apply runs a command through the history and publishes the change.
func (e *Editor) apply(ws Workspace, do, undo Action, mergeKey string) error {
	if e.project.debug {
		debugCheckHistory(e.history)
	}
	if err := e.history.ApplyAndRecord(ws, do, undo, mergeKey); err != nil {
		return err
	}
	e.publish(EventChanged)
	return nil
}

// record stores an already-applied command and publishes the change.
func (e *Editor) record(ws Workspace, redo, undo Action) {
	if e.project.debug {
		debugCheckHistory(e.history)
	}
	e.history.Record(ws, redo, undo, "")
	e.publish(EventChanged)
}

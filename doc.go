// Package marionette is the document engine of a 2D sprite-animation
// editor: layered pixel art, a bone skeleton that drives layers, and
// keyframed animations, with full undo and redo.
//
// # Quick start
//
// [NewEditor] creates a default document (one layer, one animation) and the
// history around it. Every user-facing mutation goes through the editor so
// it can be undone:
//
//	e := marionette.NewEditor(marionette.DefaultConfig(), renderer, nil)
//	layer := e.SelectedLayer()
//	_ = e.Project().SetPixel(layer, 3, 4, [4]byte{255, 0, 0, 255})
//
//	bone, _ := e.AddBone(marionette.RootBoneID)
//	_ = e.SetBoneVector(bone, &marionette.Vec2{X: 32, Y: 32}, 0, 10)
//	_ = e.SetBoneLayerID(bone, layer)
//
//	_ = e.SetKeyframeTransform(e.SelectedAnimation(), 6, bone,
//		marionette.BoneTransform{Rotate: math.Pi / 4})
//	_, _ = e.Undo()
//
// Headless use passes a nil [Renderer]; texture and render calls then fail
// with [ErrInvalidState] while everything else works.
//
// # Document model
//
// A [Project] owns every entity in an arena keyed by [ID]. Layers form a
// tree of raster layers and folders, listed topmost first. Bones form a
// tree under a fixed root ([RootBoneID]); a posed bone may drive one raster
// layer. Animations hold a sorted timeline of keyframes, each mapping bone
// ids to a [BoneTransform]. Frames between keyframes are interpolated
// linearly ([Project.FrameBoneTransformMap]).
//
// Pixel buffers are straight-alpha RGBA, width*height*4 bytes, stored in the
// project rather than in the layers.
//
// # Transforms
//
// [Mat33] uses the row-vector convention: A.Mul(B) applies A first. A bone's
// world transform at a frame ([Project.FrameBoneWorldTransform]) applies the
// bone's own rotation around its pivot and translation, then each
// ancestor's.
//
// # History
//
// [History] keeps bounded undo and redo stacks of action pairs. Records
// sharing a merge key collapse, so a drag becomes one step. Undo and redo
// switch the editor to the workspace the step was recorded in.
//
// # Rendering
//
// The project draws through the [Renderer] interface; package ebitenrender
// implements it on Ebitengine. Raster layers are mirrored as textures and
// folders are composited into cached surfaces. Both are invalidated by
// [Project.MarkLayerAsShouldReRender], which every mutator calls.
//
// # Persistence
//
// [Project.Save] and [Project.Read] go through an [ArchiveCodec] holding a
// JSON manifest and one PNG per raster layer; package archive provides the
// zip codec. Read validates everything before replacing the document.
//
// # Debug mode
//
// [Project.SetDebugMode] prints render stats and tree-depth warnings to
// stderr.
package marionette

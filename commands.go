package marionette

import (
	"fmt"
	"maps"
	"slices"
)

// Recorded commands. Each one applies a Project mutation and records its
// inverse, built from a restore-info snapshot or the previous value, so
// that Undo and Redo can replay it. Closures capture ids only.

func noErr(fn func()) Action {
	return func() error {
		fn()
		return nil
	}
}

// --- Document ---

// Rename renames the document.
func (e *Editor) Rename(name string) error {
	old := e.project.Name()
	if old == name {
		return nil
	}
	return e.apply(WorkspaceNone,
		noErr(func() { e.project.SetName(name) }),
		noErr(func() { e.project.SetName(old) }),
		"")
}

// SetBackground changes the checkerboard colors. It is not recorded.
func (e *Editor) SetBackground(bg BackgroundColors) {
	e.project.SetBackground(bg)
	e.publish(EventChanged)
}

// --- Layers ---

// AddLayer inserts a new raster layer at anchor (see Project.AddLayer) and
// selects it.
func (e *Editor) AddLayer(anchor ID) (ID, error) {
	return e.addLayer(anchor, KindRaster)
}

// AddFolder inserts a new folder at anchor and selects it.
func (e *Editor) AddFolder(anchor ID) (ID, error) {
	return e.addLayer(anchor, KindFolder)
}

func (e *Editor) addLayer(anchor ID, kind LayerKind) (ID, error) {
	p := e.project
	add := p.AddLayer
	if kind == KindFolder {
		add = p.AddFolder
	}
	l, err := add(anchor)
	if err != nil {
		return NoID, err
	}
	if err := p.ExpandLayerAncestors(l.ID); err != nil {
		return NoID, err
	}
	info, err := p.LayerRestoreInfo(l.ID)
	if err != nil {
		return NoID, err
	}
	e.layer = l.ID
	e.record(WorkspacePaint,
		func() error { return e.restoreLayer(info) },
		func() error { return e.deleteLayer(info.ID) },
	)
	return l.ID, nil
}

func (e *Editor) restoreLayer(info LayerRestoreInfo) error {
	l, err := e.project.RestoreLayer(info)
	if err != nil {
		return err
	}
	e.layer = l.ID
	return e.project.ExpandLayerAncestors(l.ID)
}

func (e *Editor) deleteLayer(id ID) error {
	next, err := e.project.DeleteLayer(id)
	if err != nil {
		return err
	}
	e.layer = next
	return nil
}

// DeleteLayer removes a layer or folder subtree.
func (e *Editor) DeleteLayer(id ID) error {
	info, err := e.project.LayerRestoreInfo(id)
	if err != nil {
		return err
	}
	return e.apply(WorkspacePaint,
		func() error { return e.deleteLayer(id) },
		func() error { return e.restoreLayer(info) },
		"")
}

// MergeDown composites raster layer src onto the raster layer directly
// below it and deletes src.
func (e *Editor) MergeDown(src ID) error {
	p := e.project
	l, err := p.Layer(src)
	if err != nil {
		return err
	}
	dst, err := p.BottomLayer(src)
	if err != nil {
		return err
	}
	if l.IsFolder() || dst == NoID || p.layerMap[dst].IsFolder() {
		return fmt.Errorf("marionette: merge down %d: needs a raster layer on a raster layer: %w", src, ErrInvalidState)
	}
	srcInfo, err := p.LayerRestoreInfo(src)
	if err != nil {
		return err
	}
	dstOld, err := p.LayerPixelsCopy(dst)
	if err != nil {
		return err
	}
	return e.apply(WorkspacePaint,
		func() error {
			if err := p.MergeDownLayerPixels(src, dst); err != nil {
				return err
			}
			if _, err := p.DeleteLayer(src); err != nil {
				return err
			}
			e.layer = dst
			return nil
		},
		func() error {
			if _, err := p.RestoreLayer(srcInfo); err != nil {
				return err
			}
			e.layer = src
			return p.SetLayerPixels(dst, dstOld)
		},
		"")
}

// DuplicateLayer copies a layer or folder subtree directly above itself
// and selects the copy.
func (e *Editor) DuplicateLayer(id ID) (ID, error) {
	l, err := e.project.DuplicateLayer(id, NoID)
	if err != nil {
		return NoID, err
	}
	info, err := e.project.LayerRestoreInfo(l.ID)
	if err != nil {
		return NoID, err
	}
	e.layer = l.ID
	e.record(WorkspacePaint,
		func() error { return e.restoreLayer(info) },
		func() error { return e.deleteLayer(info.ID) },
	)
	return l.ID, nil
}

// MoveLayer relocates a layer (see Project.MoveLayer).
func (e *Editor) MoveLayer(id ID, pos Position, target ID) error {
	info, err := e.project.LayerPositionRestoreInfo(id)
	if err != nil {
		return err
	}
	return e.apply(WorkspacePaint,
		func() error {
			if err := e.project.MoveLayer(id, pos, target); err != nil {
				return err
			}
			e.layer = id
			return nil
		},
		func() error {
			_, err := e.project.RestoreLayerPosition(info)
			e.layer = id
			return err
		},
		"")
}

// SetLayerName renames a layer or folder.
func (e *Editor) SetLayerName(id ID, name string) error {
	l, err := e.project.Layer(id)
	if err != nil {
		return err
	}
	old := l.Name
	if old == name {
		return nil
	}
	return e.apply(WorkspacePaint,
		func() error { return e.project.SetLayerName(id, name) },
		func() error { return e.project.SetLayerName(id, old) },
		"")
}

// SetLayerVisibility shows or hides a layer or folder.
func (e *Editor) SetLayerVisibility(id ID, visible bool) error {
	l, err := e.project.Layer(id)
	if err != nil {
		return err
	}
	old := l.Visible
	if old == visible {
		return nil
	}
	return e.apply(WorkspacePaint,
		func() error { return e.project.SetLayerVisibility(id, visible) },
		func() error { return e.project.SetLayerVisibility(id, old) },
		"")
}

// SetLayerOpacity sets a layer's opacity. Consecutive calls for the same
// layer collapse into one undo step.
func (e *Editor) SetLayerOpacity(id ID, opacity int) error {
	l, err := e.project.Layer(id)
	if err != nil {
		return err
	}
	opacity = min(max(opacity, 0), 100)
	old := l.Opacity
	if old == opacity {
		return nil
	}
	return e.apply(WorkspacePaint,
		func() error { return e.project.SetLayerOpacity(id, opacity) },
		func() error { return e.project.SetLayerOpacity(id, old) },
		fmt.Sprintf("setLayerOpacity#%d", id))
}

// ApplyLayerPixels replaces one layer's pixels as an undoable step.
func (e *Editor) ApplyLayerPixels(id ID, data []byte) error {
	return e.ApplyLayerPixelModifications(map[ID][]byte{id: data})
}

// ApplyLayerPixelModifications replaces the pixels of several layers as one
// undoable step. Paint tools commit through it.
func (e *Editor) ApplyLayerPixelModifications(mods map[ID][]byte) error {
	p := e.project
	size := p.width * p.height * 4
	old := make(map[ID][]byte, len(mods))
	for id, data := range mods {
		pix, err := p.LayerPixelsCopy(id)
		if err != nil {
			return err
		}
		if len(data) != size {
			return fmt.Errorf("marionette: pixels of layer %d: got %d bytes, want %d: %w", id, len(data), size, ErrInvalidState)
		}
		old[id] = pix
	}
	next := make(map[ID][]byte, len(mods))
	for id, data := range mods {
		next[id] = slices.Clone(data)
	}
	set := func(m map[ID][]byte) Action {
		return func() error {
			for _, id := range slices.Sorted(maps.Keys(m)) {
				if err := p.SetLayerPixels(id, m[id]); err != nil {
					return err
				}
			}
			return nil
		}
	}
	return e.apply(WorkspacePaint, set(next), set(old), "")
}

// --- Canvas ---

// ResizeCanvas resizes the canvas (see Project.ResizeCanvas).
func (e *Editor) ResizeCanvas(width, height int, align Align) error {
	snap := e.project.PixelSnapshot()
	return e.apply(WorkspacePaint,
		func() error { return e.project.ResizeCanvas(width, height, align) },
		func() error { return e.project.RestorePixels(snap) },
		"")
}

// Rotate180 turns the canvas half a turn.
func (e *Editor) Rotate180() error {
	turn := noErr(e.project.Rotate180)
	return e.apply(WorkspacePaint, turn, turn, "")
}

// Rotate90CW turns the canvas a quarter turn clockwise.
func (e *Editor) Rotate90CW() error {
	return e.apply(WorkspacePaint, noErr(e.project.Rotate90CW), noErr(e.project.Rotate90CCW), "")
}

// Rotate90CCW turns the canvas a quarter turn counter-clockwise.
func (e *Editor) Rotate90CCW() error {
	return e.apply(WorkspacePaint, noErr(e.project.Rotate90CCW), noErr(e.project.Rotate90CW), "")
}

// FlipHorizontal mirrors the canvas left to right.
func (e *Editor) FlipHorizontal() error {
	flip := noErr(e.project.FlipHorizontal)
	return e.apply(WorkspacePaint, flip, flip, "")
}

// FlipVertical mirrors the canvas top to bottom.
func (e *Editor) FlipVertical() error {
	flip := noErr(e.project.FlipVertical)
	return e.apply(WorkspacePaint, flip, flip, "")
}

// --- Bones ---

// AddBone appends a new bone under parent and selects it.
func (e *Editor) AddBone(parent ID) (ID, error) {
	p := e.project
	b, err := p.AddBone(parent)
	if err != nil {
		return NoID, err
	}
	if err := p.ExpandBoneAncestors(b.ID); err != nil {
		return NoID, err
	}
	info, err := p.BoneRestoreInfo(b.ID)
	if err != nil {
		return NoID, err
	}
	e.bone = b.ID
	e.record(WorkspaceSkeleton,
		func() error { return e.restoreBone(info) },
		func() error {
			if _, err := p.DeleteBone(info.ID); err != nil {
				return err
			}
			p.DropBoneTransforms(info.ID)
			e.bone = info.Parent
			return nil
		},
	)
	return b.ID, nil
}

// AddSiblingBone adds a bone next to id: under id's parent, or under the
// root when id is the root.
func (e *Editor) AddSiblingBone(id ID) (ID, error) {
	b, err := e.project.Bone(id)
	if err != nil {
		return NoID, err
	}
	parent := b.parent
	if b.IsRoot() {
		parent = RootBoneID
	}
	return e.AddBone(parent)
}

func (e *Editor) restoreBone(info BoneRestoreInfo) error {
	b, err := e.project.RestoreBone(info)
	if err != nil {
		return err
	}
	e.bone = b.ID
	return e.project.ExpandBoneAncestors(b.ID)
}

// DeleteBone removes a bone subtree.
func (e *Editor) DeleteBone(id ID) error {
	info, err := e.project.BoneRestoreInfo(id)
	if err != nil {
		return err
	}
	return e.apply(WorkspaceSkeleton,
		func() error {
			next, err := e.project.DeleteBone(id)
			if err != nil {
				return err
			}
			e.bone = next
			return nil
		},
		func() error { return e.restoreBone(info) },
		"")
}

// MoveBone relocates a bone (see Project.MoveBone).
func (e *Editor) MoveBone(id ID, pos Position, target ID) error {
	info, err := e.project.BonePositionRestoreInfo(id)
	if err != nil {
		return err
	}
	return e.apply(WorkspaceSkeleton,
		func() error {
			if err := e.project.MoveBone(id, pos, target); err != nil {
				return err
			}
			e.bone = id
			return nil
		},
		func() error {
			_, err := e.project.RestoreBonePosition(info)
			e.bone = id
			return err
		},
		"")
}

func boneVectorKey(id ID) string { return fmt.Sprintf("setBoneVector#%d", id) }

// SetBoneVector sets a bone's rest pose. Consecutive calls for the same
// bone collapse into one undo step until EndBoneVector.
func (e *Editor) SetBoneVector(id ID, pivot *Vec2, rotation, length float64) error {
	b, err := e.project.nonRootBone(id, "set vector of")
	if err != nil {
		return err
	}
	var oldPivot *Vec2
	if b.Pivot != nil {
		v := *b.Pivot
		oldPivot = &v
	}
	oldRotation, oldLength := b.Rotation, b.Length
	if pivot != nil {
		v := *pivot
		pivot = &v
	}
	return e.apply(WorkspaceSkeleton,
		func() error { return e.project.SetBoneVector(id, pivot, rotation, length) },
		func() error { return e.project.SetBoneVector(id, oldPivot, oldRotation, oldLength) },
		boneVectorKey(id))
}

// EndBoneVector closes the merge window opened by SetBoneVector.
func (e *Editor) EndBoneVector(id ID) { e.history.EndMerge(boneVectorKey(id)) }

// SetBoneName renames a bone.
func (e *Editor) SetBoneName(id ID, name string) error {
	b, err := e.project.nonRootBone(id, "rename")
	if err != nil {
		return err
	}
	old := b.Name
	if old == name {
		return nil
	}
	return e.apply(WorkspaceSkeleton,
		func() error { return e.project.SetBoneName(id, name) },
		func() error { return e.project.SetBoneName(id, old) },
		"")
}

// setBoneFlag records a boolean bone setter in the active workspace, since
// the bone tree is shown in both the skeleton and the animate workspaces.
func (e *Editor) setBoneFlag(id ID, get func(*Bone) bool, set func(ID, bool) error, value bool) error {
	b, err := e.project.Bone(id)
	if err != nil {
		return err
	}
	old := get(b)
	if old == value {
		return nil
	}
	ws := e.workspace
	if ws != WorkspaceAnimate {
		ws = WorkspaceSkeleton
	}
	return e.apply(ws,
		func() error { return set(id, value) },
		func() error { return set(id, old) },
		"")
}

// SetBoneVisibility shows or hides a bone subtree.
func (e *Editor) SetBoneVisibility(id ID, visible bool) error {
	return e.setBoneFlag(id, func(b *Bone) bool { return b.Visible }, e.project.SetBoneVisibility, visible)
}

// SetBoneGizmoVisibility toggles drawing of the bone itself.
func (e *Editor) SetBoneGizmoVisibility(id ID, visible bool) error {
	return e.setBoneFlag(id, func(b *Bone) bool { return b.GizmoVisible }, e.project.SetBoneGizmoVisibility, visible)
}

// SetBoneImageVisibility toggles drawing of the bone's layer.
func (e *Editor) SetBoneImageVisibility(id ID, visible bool) error {
	return e.setBoneFlag(id, func(b *Bone) bool { return b.ImageVisible }, e.project.SetBoneImageVisibility, visible)
}

// SetBoneLayerID binds a layer to a bone. With AutoNaming the bone then
// takes the layer's name as a separate undo step.
func (e *Editor) SetBoneLayerID(id, layer ID) error {
	b, err := e.project.nonRootBone(id, "set layer of")
	if err != nil {
		return err
	}
	old := b.LayerID
	if old == layer {
		return nil
	}
	err = e.apply(WorkspaceSkeleton,
		func() error { return e.project.SetBoneLayerID(id, layer) },
		func() error { return e.project.SetBoneLayerID(id, old) },
		"")
	if err != nil || !e.AutoNaming || layer == NoID {
		return err
	}
	return e.SetBoneName(id, e.project.layerMap[layer].Name)
}

// --- Animations ---

// AddAnimation inserts a new animation at the top of the list and selects
// it.
func (e *Editor) AddAnimation() (ID, error) {
	e.player.Stop()
	a := e.project.AddAnimation()
	info, err := e.project.AnimationRestoreInfo(a.ID)
	if err != nil {
		return NoID, err
	}
	e.animation = a.ID
	e.record(WorkspaceAnimate,
		func() error { return e.restoreAnimation(info) },
		func() error { return e.deleteAnimation(info.ID) },
	)
	return a.ID, nil
}

func (e *Editor) restoreAnimation(info AnimationRestoreInfo) error {
	a, err := e.project.RestoreAnimation(info)
	if err != nil {
		return err
	}
	e.animation = a.ID
	return nil
}

func (e *Editor) deleteAnimation(id ID) error {
	next, err := e.project.DeleteAnimation(id)
	if err != nil {
		return err
	}
	e.animation = next
	return nil
}

// DeleteAnimation removes an animation.
func (e *Editor) DeleteAnimation(id ID) error {
	e.player.Stop()
	info, err := e.project.AnimationRestoreInfo(id)
	if err != nil {
		return err
	}
	return e.apply(WorkspaceAnimate,
		func() error { return e.deleteAnimation(id) },
		func() error { return e.restoreAnimation(info) },
		"")
}

// MoveAnimation places an animation before or after target in the list.
func (e *Editor) MoveAnimation(id ID, pos Position, target ID) error {
	info, err := e.project.AnimationPositionRestoreInfo(id)
	if err != nil {
		return err
	}
	return e.apply(WorkspaceAnimate,
		func() error {
			if err := e.project.MoveAnimation(id, pos, target); err != nil {
				return err
			}
			e.animation = id
			return nil
		},
		func() error {
			_, err := e.project.RestoreAnimationPosition(info)
			e.animation = id
			return err
		},
		"")
}

// SetAnimationName renames an animation.
func (e *Editor) SetAnimationName(id ID, name string) error {
	a, err := e.project.Animation(id)
	if err != nil {
		return err
	}
	old := a.Name
	if old == name {
		return nil
	}
	return e.apply(WorkspaceAnimate,
		func() error { return e.project.SetAnimationName(id, name) },
		func() error { return e.project.SetAnimationName(id, old) },
		"")
}

// SetAnimationFPS sets an animation's frame rate. Consecutive calls for the
// same animation collapse into one undo step.
func (e *Editor) SetAnimationFPS(id ID, fps int) error {
	e.player.Stop()
	a, err := e.project.Animation(id)
	if err != nil {
		return err
	}
	old := a.FPS
	if old == fps {
		return nil
	}
	return e.apply(WorkspaceAnimate,
		func() error {
			e.player.Stop()
			e.animation = id
			return e.project.SetAnimationFPS(id, fps)
		},
		func() error {
			e.player.Stop()
			e.animation = id
			return e.project.SetAnimationFPS(id, old)
		},
		fmt.Sprintf("setAnimationFps#%d", id))
}

// ToggleAnimationLoop flips an animation's loop flag. It is not recorded.
func (e *Editor) ToggleAnimationLoop(id ID) error {
	e.player.Stop()
	a, err := e.project.Animation(id)
	if err != nil {
		return err
	}
	if err := e.project.SetAnimationLoop(id, !a.Loop); err != nil {
		return err
	}
	e.publish(EventChanged)
	return nil
}

// --- Timeline ---

// focus points the selection at a frame of an animation after a timeline
// command ran.
func (e *Editor) focus(animation ID, frame int) {
	e.player.Stop()
	e.animation = animation
	e.SetCurrentFrame(frame)
}

// AddKeyframe creates a keyframe at frame from the interpolated pose. It is
// a no-op when the frame already holds one.
func (e *Editor) AddKeyframe(animation ID, frame int) error {
	p := e.project
	e.player.Stop()
	if p.HasKeyframe(animation, frame) {
		return nil
	}
	if _, err := p.AddKeyframe(animation, frame); err != nil {
		return err
	}
	info, err := p.KeyframeRestoreInfo(animation, frame)
	if err != nil {
		return err
	}
	e.focus(animation, frame)
	e.record(WorkspaceAnimate,
		func() error {
			if _, err := p.RestoreKeyframe(info); err != nil {
				return err
			}
			e.focus(animation, frame)
			return nil
		},
		func() error {
			e.focus(animation, frame)
			return p.DeleteKeyframe(animation, frame)
		},
	)
	return nil
}

// DeleteKeyframe removes the keyframe at frame.
func (e *Editor) DeleteKeyframe(animation ID, frame int) error {
	p := e.project
	e.player.Stop()
	info, err := p.KeyframeRestoreInfo(animation, frame)
	if err != nil {
		return err
	}
	return e.apply(WorkspaceAnimate,
		func() error {
			e.focus(animation, frame)
			return p.DeleteKeyframe(animation, frame)
		},
		func() error {
			if _, err := p.RestoreKeyframe(info); err != nil {
				return err
			}
			e.focus(animation, frame)
			return nil
		},
		"")
}

// MoveKeyframe moves the keyframe at from to frame to, replacing whatever
// keyframe was there. Undo brings the replaced keyframe back.
func (e *Editor) MoveKeyframe(animation ID, from, to int) error {
	p := e.project
	e.player.Stop()
	if from == to {
		return nil
	}
	if _, err := p.Keyframe(animation, from); err != nil {
		return err
	}
	if to < 0 {
		return fmt.Errorf("marionette: move keyframe to frame %d: %w", to, ErrInvalidState)
	}
	var replaced *KeyframeRestoreInfo
	if p.HasKeyframe(animation, to) {
		info, err := p.KeyframeRestoreInfo(animation, to)
		if err != nil {
			return err
		}
		replaced = &info
	}
	return e.apply(WorkspaceAnimate,
		func() error {
			if replaced != nil {
				if err := p.DeleteKeyframe(animation, to); err != nil {
					return err
				}
			}
			e.focus(animation, to)
			return p.MoveKeyframe(animation, from, to)
		},
		func() error {
			if err := p.MoveKeyframe(animation, to, from); err != nil {
				return err
			}
			if replaced != nil {
				if _, err := p.RestoreKeyframe(*replaced); err != nil {
					return err
				}
			}
			e.focus(animation, from)
			return nil
		},
		"")
}

// FrameMoveLeft shifts every keyframe at or after frame one frame left and
// reports whether anything moved. Nothing is recorded when nothing moved.
func (e *Editor) FrameMoveLeft(animation ID, frame int) (bool, error) {
	p := e.project
	e.player.Stop()
	// The keyframe at frame, if any, lands on frame-1; shifting right from
	// there puts it back. Otherwise frame-1 keeps its original keyframe and
	// the shift back starts at frame.
	back := frame
	if p.HasKeyframe(animation, frame) {
		back = frame - 1
	}
	moved, err := p.FrameMoveLeft(animation, frame)
	if err != nil || !moved {
		return false, err
	}
	e.focus(animation, frame-1)
	e.record(WorkspaceAnimate,
		func() error {
			_, err := p.FrameMoveLeft(animation, frame)
			e.focus(animation, frame-1)
			return err
		},
		func() error {
			_, err := p.FrameMoveRight(animation, back)
			e.focus(animation, frame)
			return err
		},
	)
	return true, nil
}

// FrameMoveRight shifts every keyframe at or after frame one frame right
// and reports whether anything moved. Nothing is recorded when nothing
// moved.
func (e *Editor) FrameMoveRight(animation ID, frame int) (bool, error) {
	p := e.project
	e.player.Stop()
	moved, err := p.FrameMoveRight(animation, frame)
	if err != nil || !moved {
		return false, err
	}
	e.focus(animation, frame+1)
	e.record(WorkspaceAnimate,
		func() error {
			_, err := p.FrameMoveRight(animation, frame)
			e.focus(animation, frame+1)
			return err
		},
		func() error {
			// frame is empty after the shift, so shifting left from
			// frame+1 cannot collide.
			_, err := p.FrameMoveLeft(animation, frame+1)
			e.focus(animation, frame)
			return err
		},
	)
	return true, nil
}

func keyframeTransformKey(animation ID, frame int, bone ID) string {
	return fmt.Sprintf("setKeyframeTransform#%d#%d#%d", animation, frame, bone)
}

// SetKeyframeTransform sets a bone's transform at frame, creating the
// keyframe when needed. Consecutive calls for the same animation, frame and
// bone collapse into one undo step until EndKeyframeTransform.
func (e *Editor) SetKeyframeTransform(animation ID, frame int, bone ID, t BoneTransform) error {
	p := e.project
	e.player.Stop()
	info, err := p.KeyframeTransformRestoreInfo(animation, frame, bone)
	if err != nil {
		return err
	}
	return e.apply(WorkspaceAnimate,
		func() error {
			e.focus(animation, frame)
			return p.SetKeyframeBoneTransform(animation, frame, bone, t)
		},
		func() error {
			e.focus(animation, frame)
			return p.RestoreKeyframeTransform(info)
		},
		keyframeTransformKey(animation, frame, bone))
}

// EndKeyframeTransform closes the merge window opened by
// SetKeyframeTransform.
func (e *Editor) EndKeyframeTransform(animation ID, frame int, bone ID) {
	e.history.EndMerge(keyframeTransformKey(animation, frame, bone))
}

package marionette

// frameTransforms returns the pose of a at frame. An authored keyframe is
// returned as stored. Otherwise the nearest keyframes strictly before and
// after frame are interpolated linearly; with no previous keyframe every
// known bone gets the identity, and with no next keyframe the previous pose
// is held.
func (p *Project) frameTransforms(a *Animation, frame int) map[ID]BoneTransform {
	if i := a.keyframeIndex(frame); i >= 0 {
		return a.Timeline[i].Transforms
	}

	var prev, next *Keyframe
	for _, k := range a.Timeline {
		if k.Frame < frame {
			prev = k
			continue
		}
		next = k
		break
	}

	ret := make(map[ID]BoneTransform, len(p.boneMap))
	for id := range p.boneMap {
		ret[id] = BoneTransform{}
	}
	if prev == nil {
		return ret
	}
	if next == nil {
		return prev.Transforms
	}

	t := float64(frame-prev.Frame) / float64(next.Frame-prev.Frame)
	for id := range p.boneMap {
		from, ok := prev.Transforms[id]
		if !ok {
			continue
		}
		to := next.Transforms[id]
		ret[id] = BoneTransform{
			TranslateX: from.TranslateX + t*(to.TranslateX-from.TranslateX),
			TranslateY: from.TranslateY + t*(to.TranslateY-from.TranslateY),
			Rotate:     from.Rotate + t*(to.Rotate-from.Rotate),
		}
	}
	return ret
}

// FrameBoneTransformMap returns the pose of every bone at frame, keyed by
// bone id. The returned map MUST NOT be mutated: for authored frames it is
// the keyframe's own storage.
func (p *Project) FrameBoneTransformMap(animation ID, frame int) (map[ID]BoneTransform, error) {
	a, err := p.Animation(animation)
	if err != nil {
		return nil, err
	}
	return p.frameTransforms(a, frame), nil
}

// FrameBoneTransform returns one bone's transform at frame, or the identity
// when the pose has no entry for it.
func (p *Project) FrameBoneTransform(animation ID, frame int, bone ID) (BoneTransform, error) {
	tm, err := p.FrameBoneTransformMap(animation, frame)
	if err != nil {
		return BoneTransform{}, err
	}
	if _, err := p.Bone(bone); err != nil {
		return BoneTransform{}, err
	}
	return tm[bone], nil
}

// FrameBoneWorldTransform returns the matrix that maps the bone's rest-pose
// coordinates to document space at frame. Starting with the bone itself and
// walking up to (not including) the root, each posed bone with an entry in
// the pose contributes
//
//	Translate(-pivot) × Rotate(rotate) × Translate(pivot) × Translate(tx, ty)
//
// multiplied on the right. The bone's own factor therefore applies first:
// it spins around its own pivot before the parents' offsets are applied.
//
// tm may be nil, in which case the pose at frame is computed.
func (p *Project) FrameBoneWorldTransform(animation ID, frame int, bone ID, tm map[ID]BoneTransform) (Mat33, error) {
	b, err := p.Bone(bone)
	if err != nil {
		return Identity33, err
	}
	if tm == nil {
		if tm, err = p.FrameBoneTransformMap(animation, frame); err != nil {
			return Identity33, err
		}
	}
	return p.boneWorldTransform(b, tm), nil
}

func (p *Project) boneWorldTransform(b *Bone, tm map[ID]BoneTransform) Mat33 {
	m := Identity33
	for cur := b; cur != nil && !cur.IsRoot(); {
		if t, ok := tm[cur.ID]; ok && cur.Pivot != nil {
			m = MulAll(m,
				RotateAround33(*cur.Pivot, t.Rotate),
				Translate33(t.TranslateX, t.TranslateY),
			)
		}
		parent, err := p.Bone(cur.parent)
		if err != nil {
			break
		}
		cur = parent
	}
	return m
}

// FrameBoneWorldVec returns the two world-space endpoints of the bone's
// segment at frame: the pivot and the far end. An unposed bone returns two
// zero vectors. tm may be nil.
func (p *Project) FrameBoneWorldVec(animation ID, frame int, bone ID, tm map[ID]BoneTransform) ([2]Vec2, error) {
	b, err := p.Bone(bone)
	if err != nil {
		return [2]Vec2{}, err
	}
	if b.Pivot == nil {
		return [2]Vec2{}, nil
	}
	m, err := p.FrameBoneWorldTransform(animation, frame, bone, tm)
	if err != nil {
		return [2]Vec2{}, err
	}
	return [2]Vec2{m.TransformPoint(*b.Pivot), m.TransformPoint(b.Endpoint())}, nil
}

// VisibleLayerBoneMap maps each layer id to the bone that drives it, for
// every bone that is visible (along with all its ancestors), has image
// visibility on and has an associated layer.
func (p *Project) VisibleLayerBoneMap() map[ID]ID {
	ret := make(map[ID]ID)
	p.WalkBones(func(b *Bone, _ int) bool {
		if !b.Visible {
			return false
		}
		if b.ImageVisible && b.LayerID != NoID {
			ret[b.LayerID] = b.ID
		}
		return true
	})
	return ret
}

// FillKeyframesMissingBoneTransform inserts an identity transform for every
// known bone missing from every keyframe of every animation. Authored
// values are left alone.
func (p *Project) FillKeyframesMissingBoneTransform() {
	for _, a := range p.animationMap {
		for _, k := range a.Timeline {
			if k.Transforms == nil {
				k.Transforms = make(map[ID]BoneTransform, len(p.boneMap))
			}
			for id := range p.boneMap {
				if _, ok := k.Transforms[id]; !ok {
					k.Transforms[id] = BoneTransform{}
				}
			}
		}
	}
}

// DropBoneTransforms removes the entries of the given bones from every
// keyframe. It undoes the backfill of AddBone.
func (p *Project) DropBoneTransforms(ids ...ID) {
	for _, a := range p.animationMap {
		for _, k := range a.Timeline {
			for _, id := range ids {
				delete(k.Transforms, id)
			}
		}
	}
}

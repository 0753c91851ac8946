package project

import (
	"maps"

	"github.com/google/uuid"

	"github.com/meigma/ultra/preview"
)

// PreparePreview marks the preview for id as pending, releasing any
// rendered handle.
func (p *Project) PreparePreview(t AssetType, id uuid.UUID) {
	slots, ok := p.previews[t]
	if !ok {
		return
	}
	if h := slots[id]; h != nil {
		h.Release()
	}
	slots[id] = nil
}

// RemovePreview releases and forgets the preview for id.
func (p *Project) RemovePreview(t AssetType, id uuid.UUID) {
	slots, ok := p.previews[t]
	if !ok {
		return
	}
	if h := slots[id]; h != nil {
		h.Release()
	}
	delete(slots, id)
}

// Previews renders every pending slot of type t from its Library copy and
// returns the slot map. Render failures are logged and leave the slot
// pending (nil). The handles stay owned by the project.
func (p *Project) Previews(t AssetType, r preview.Renderer) map[uuid.UUID]preview.Handle {
	slots, ok := p.previews[t]
	if !ok || p.closed {
		return nil
	}
	byID := make(map[uuid.UUID]*AssetRecord, len(p.assets[t]))
	for _, rec := range p.assets[t] {
		byID[rec.ID] = rec
	}
	for id, h := range slots {
		if h != nil {
			continue
		}
		rec, ok := byID[id]
		if !ok {
			continue
		}
		path := p.LibraryPath(*rec)
		var err error
		switch t {
		case Texture:
			h, err = r.RenderTexture(path)
		case Model:
			h, err = r.RenderModel(path)
		}
		if err != nil {
			p.log().Warn("preview render failed", "type", t, "path", rec.SourcePath, "error", err)
			continue
		}
		slots[id] = h
	}
	return maps.Clone(slots)
}

func (p *Project) releasePreviews() {
	for _, slots := range p.previews {
		for id, h := range slots {
			if h != nil {
				h.Release()
			}
			delete(slots, id)
		}
	}
}

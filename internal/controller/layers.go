package controller

import (
	"context"
	"errors"

	"github.com/joeblew999/daurin/internal/layers"
	"github.com/joeblew999/daurin/internal/mapview"
)

// ToggleLayer flips a facility layer. Before the map is attached only the
// flag changes; the group is drawn on Attach. Rapid toggles converge on the
// last call.
func (c *Controller) ToggleLayer(ctx context.Context, id string) (OperationStatus, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return OperationStatus{}, ErrClosed
	}
	cfg, err := c.layers.Toggle(id)
	if err != nil {
		c.mu.Unlock()
		if errors.Is(err, layers.ErrUnknownLayer) {
			msg := c.notify(mapview.LevelWarning, msgUnknownLayer, id)
			return failure(OutcomeNotFound, msg), nil
		}
		return OperationStatus{}, err
	}
	c.layerSeq[id]++
	seq := c.layerSeq[id]
	attached := c.attached

	if !attached {
		c.mu.Unlock()
		return succeeded(OutcomeQueued, cfg.Name), nil
	}
	if !cfg.IsActive {
		c.m.ClearGroup(cfg.ID)
		c.mu.Unlock()
		c.publishState()
		return succeeded(OutcomeHidden, cfg.Name), nil
	}
	c.mu.Unlock()

	st := c.showLayer(ctx, cfg, seq)
	c.publishState()
	return st, nil
}

// showLayer draws a layer from the facility cache, fetching it on first use.
// A result whose sequence is no longer current is dropped.
func (c *Controller) showLayer(ctx context.Context, cfg layers.Config, seq uint64) OperationStatus {
	recs, err := c.cache.Records(ctx, cfg.Source)

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.layerSeq[cfg.ID] != seq || c.closed {
		return succeeded(OutcomeStale, cfg.Name)
	}
	if err != nil {
		c.log.Warn("layer load failed", "layer", cfg.ID, "error", err)
		_ = c.layers.SetActive(cfg.ID, false)
		return failure(OutcomeFailed, c.notify(mapview.LevelError, msgLayerFailed, cfg.Name))
	}

	c.m.ClearGroup(cfg.ID)
	n := 0
	for _, rec := range recs {
		pos, has := rec.Location()
		if !has {
			continue
		}
		id := MarkerID(cfg.ID, rec.ID)
		pop, err := c.popups.Facility(id, cfg.Name, rec)
		if err != nil {
			c.log.Warn("skipping facility", "layer", cfg.ID, "id", rec.ID, "error", err)
			continue
		}
		c.registerActions(id, pop, rec.Name, pos)
		c.m.AddMarker(mapview.Marker{
			ID:       id,
			Group:    cfg.ID,
			Position: pos,
			Icon:     cfg.Icon,
			Title:    rec.Name,
			Popup:    pop.HTML,
		})
		n++
	}
	c.log.Debug("layer shown", "layer", cfg.ID, "markers", n, "records", len(recs))

	st := succeeded(OutcomeShown, cfg.Name)
	st.Count = n
	return st
}

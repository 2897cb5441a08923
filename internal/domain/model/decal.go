package model

// FlagsNamespace is the document flag scope footprint metadata lives under.
const FlagsNamespace = "footsteps"

// Flags is the metadata attached to every footprint decal. It is the only
// state used to identify and filter footprints later.
type Flags struct {
	IsFootprint  bool   `json:"isFootprint"`
	OwnerTokenID string `json:"tokenId"`
	CreatedAt    int64  `json:"createdAt"` // ms since epoch
}

// DecalSpec describes a decal to be created in the host store.
type DecalSpec struct {
	Texture  string  `json:"texture"`
	Width    float64 `json:"width"`
	Height   float64 `json:"height"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Z        int     `json:"z"`
	Alpha    float64 `json:"alpha"`
	Rotation float64 `json:"rotation"`
	Locked   bool    `json:"locked"`
	Overhead bool    `json:"overhead"`
	Hidden   bool    `json:"hidden"`
	Flags    Flags   `json:"flags"`
}

// Decal is a placed object owned by the host store.
type Decal struct {
	ID string `json:"id"`
	DecalSpec
}

// IsFootprint reports whether d carries footprint metadata.
func (d Decal) IsFootprint() bool { return d.Flags.IsFootprint }

// DecalPatch is a partial update. Nil fields are left untouched.
type DecalPatch struct {
	Alpha *float64 `json:"alpha,omitempty"`
}

// Apply returns d with the patch applied.
func (p DecalPatch) Apply(d Decal) Decal {
	if p.Alpha != nil {
		d.Alpha = *p.Alpha
	}
	return d
}

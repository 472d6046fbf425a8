package types

// Agent describes one selectable character returned by the service for a
// scene. All fields are optional; the service may omit any of them.
type Agent struct {
	AgentID         string           `json:"agent_id,omitempty"`
	BrainName       string           `json:"brain_name,omitempty"`
	GivenName       string           `json:"given_name,omitempty"`
	CharacterAssets *CharacterAssets `json:"character_assets,omitempty"`
}

// ResourceID returns the identifier used to match an agent against the
// configured character name. The brain name is the stable resource; the
// agent id is a per-session handle.
func (a *Agent) ResourceID() string {
	if a == nil {
		return ""
	}
	return a.BrainName
}

// CharacterAssets carries the avatar asset locations for an agent.
type CharacterAssets struct {
	RPMModelURI         string `json:"rpm_model_uri,omitempty"`
	RPMImageURI         string `json:"rpm_image_uri,omitempty"`
	RPMImageURIPortrait string `json:"rpm_image_uri_portrait,omitempty"`
	RPMImageURIPosture  string `json:"rpm_image_uri_posture,omitempty"`
	AvatarImg           string `json:"avatar_img,omitempty"`
	AvatarImgOriginal   string `json:"avatar_img_original,omitempty"`
}

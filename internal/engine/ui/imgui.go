// Package ui provides ImGui-based user interface components.
package ui

import (
	"fmt"

	"github.com/AllenDang/cimgui-go/backend"
	"github.com/AllenDang/cimgui-go/backend/sdlbackend"
	"github.com/AllenDang/cimgui-go/imgui"
	"github.com/go-gl/gl/v4.1-core/gl"
)

// Backend wraps the ImGui SDL backend for viewer use.
type Backend struct {
	backend backend.Backend[sdlbackend.SDLWindowFlags]
	width   int32
	height  int32
}

// NewBackend creates a new ImGui backend and its window.
func NewBackend(title string, width, height int32) (*Backend, error) {
	b := &Backend{
		width:  width,
		height: height,
	}

	var err error
	b.backend, err = backend.CreateBackend(sdlbackend.NewSDLBackend())
	if err != nil {
		return nil, fmt.Errorf("create backend: %w", err)
	}

	b.backend.SetBgColor(imgui.NewVec4(0.1, 0.1, 0.12, 1.0))
	b.backend.CreateWindow(title, int(width), int(height))

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("init opengl: %w", err)
	}

	return b, nil
}

// Run starts the main render loop.
func (b *Backend) Run(renderFunc func()) {
	b.backend.Run(renderFunc)
}

// SetWindowTitle updates the window title.
func (b *Backend) SetWindowTitle(title string) {
	b.backend.SetWindowTitle(title)
}

// GetViewport returns the main viewport work area.
func (b *Backend) GetViewport() (posX, posY, width, height float32) {
	viewport := imgui.MainViewport()
	workPos := viewport.WorkPos()
	workSize := viewport.WorkSize()
	return workPos.X, workPos.Y, workSize.X, workSize.Y
}

// FrameTexture is a GL texture refreshed with each rendered frame.
type FrameTexture struct {
	id            uint32
	width, height int
}

// Update uploads a tightly packed RGBA8 frame whose first row is the top of
// the image, reallocating storage when the size changes.
func (t *FrameTexture) Update(rgba []byte, width, height int) {
	if width == 0 || height == 0 || len(rgba) < width*height*4 {
		return
	}
	if t.id == 0 {
		gl.GenTextures(1, &t.id)
		gl.BindTexture(gl.TEXTURE_2D, t.id)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.LINEAR)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
		gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	} else {
		gl.BindTexture(gl.TEXTURE_2D, t.id)
	}
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	if width != t.width || height != t.height {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0,
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba))
		t.width, t.height = width, height
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(width), int32(height),
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba))
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

// Draw shows the frame as an ImGui image of the given size.
func (t *FrameTexture) Draw(width, height float32) {
	if t.id == 0 {
		imgui.Dummy(imgui.NewVec2(width, height))
		return
	}
	texRef := imgui.NewTextureRefTextureID(imgui.TextureID(t.id))
	imgui.ImageWithBgV(
		*texRef,
		imgui.NewVec2(width, height),
		imgui.NewVec2(0, 0),
		imgui.NewVec2(1, 1),
		imgui.NewVec4(0, 0, 0, 1),
		imgui.NewVec4(1, 1, 1, 1),
	)
}

// Delete releases the GL texture.
func (t *FrameTexture) Delete() {
	if t.id != 0 {
		gl.DeleteTextures(1, &t.id)
		t.id = 0
	}
	t.width, t.height = 0, 0
}

// IsKeyPressed checks if a key was pressed this frame.
func IsKeyPressed(key imgui.Key) bool {
	return imgui.IsKeyChordPressed(imgui.KeyChord(key))
}

// IsKeyDown checks if a key is currently held down.
func IsKeyDown(key imgui.Key) bool {
	return imgui.IsKeyDown(key)
}

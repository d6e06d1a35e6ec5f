// Package renderer presents ray-traced RGBA frames through OpenGL.
package renderer

import (
	"fmt"

	"github.com/go-gl/gl/v4.1-core/gl"
	"go.uber.org/zap"

	"github.com/Faultbox/rtview/internal/engine/shader"
	"github.com/Faultbox/rtview/internal/logger"
)

// Config holds renderer configuration.
type Config struct {
	Width  int
	Height int
}

// Renderer uploads frames into a texture and draws it over the viewport.
type Renderer struct {
	config Config
	log    *zap.Logger

	program  uint32
	vao      uint32
	frameTex uint32
	uFrame   int32

	texW, texH int
}

// New creates a new renderer.
// IMPORTANT: Must be called AFTER OpenGL context is created!
func New(cfg Config) (*Renderer, error) {
	r := &Renderer{
		config: cfg,
		log:    logger.Named("renderer"),
	}

	if err := gl.Init(); err != nil {
		return nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}

	r.log.Info("OpenGL initialized",
		zap.String("version", gl.GoStr(gl.GetString(gl.VERSION))),
		zap.String("renderer", gl.GoStr(gl.GetString(gl.RENDERER))),
	)

	gl.Disable(gl.DEPTH_TEST)
	gl.ClearColor(0.1, 0.1, 0.15, 1.0)

	var err error
	r.program, err = shader.CompileProgram(shader.PresentVertex, shader.PresentFragment)
	if err != nil {
		return nil, fmt.Errorf("failed to create present program: %w", err)
	}
	r.uFrame = shader.GetUniform(r.program, "uFrame")

	// Core profile refuses draws without a bound VAO, even with no attributes.
	gl.GenVertexArrays(1, &r.vao)

	gl.GenTextures(1, &r.frameTex)
	gl.BindTexture(gl.TEXTURE_2D, r.frameTex)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MIN_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_MAG_FILTER, gl.NEAREST)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_S, gl.CLAMP_TO_EDGE)
	gl.TexParameteri(gl.TEXTURE_2D, gl.TEXTURE_WRAP_T, gl.CLAMP_TO_EDGE)
	gl.BindTexture(gl.TEXTURE_2D, 0)

	gl.Viewport(0, 0, int32(cfg.Width), int32(cfg.Height))
	return r, nil
}

// Close cleans up renderer resources.
func (r *Renderer) Close() {
	r.log.Info("closing renderer")
	if r.frameTex != 0 {
		gl.DeleteTextures(1, &r.frameTex)
	}
	if r.vao != 0 {
		gl.DeleteVertexArrays(1, &r.vao)
	}
	if r.program != 0 {
		gl.DeleteProgram(r.program)
	}
}

// Resize handles drawable size changes.
func (r *Renderer) Resize(width, height int) {
	r.config.Width = width
	r.config.Height = height
	gl.Viewport(0, 0, int32(width), int32(height))
	r.log.Debug("renderer resized", zap.Int("width", width), zap.Int("height", height))
}

// UploadFrame copies a tightly packed RGBA8 frame into the frame texture,
// reallocating it when the frame size changes.
func (r *Renderer) UploadFrame(rgba []byte, width, height int) error {
	if len(rgba) != width*height*4 {
		return fmt.Errorf("frame is %d bytes, want %d for %dx%d", len(rgba), width*height*4, width, height)
	}
	if width == 0 || height == 0 {
		return nil
	}

	gl.BindTexture(gl.TEXTURE_2D, r.frameTex)
	gl.PixelStorei(gl.UNPACK_ALIGNMENT, 1)
	if width != r.texW || height != r.texH {
		gl.TexImage2D(gl.TEXTURE_2D, 0, gl.RGBA8, int32(width), int32(height), 0,
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba))
		r.texW, r.texH = width, height
		r.log.Debug("frame texture allocated", zap.Int("width", width), zap.Int("height", height))
	} else {
		gl.TexSubImage2D(gl.TEXTURE_2D, 0, 0, 0, int32(width), int32(height),
			gl.RGBA, gl.UNSIGNED_BYTE, gl.Ptr(rgba))
	}
	gl.BindTexture(gl.TEXTURE_2D, 0)
	return nil
}

// FrameTexture returns the GL texture holding the last uploaded frame.
func (r *Renderer) FrameTexture() uint32 {
	return r.frameTex
}

// Begin starts a new frame.
func (r *Renderer) Begin() {
	gl.Clear(gl.COLOR_BUFFER_BIT)
}

// DrawFrame draws the last uploaded frame over the whole viewport.
func (r *Renderer) DrawFrame() {
	if r.texW == 0 {
		return
	}
	gl.UseProgram(r.program)
	gl.ActiveTexture(gl.TEXTURE0)
	gl.BindTexture(gl.TEXTURE_2D, r.frameTex)
	gl.Uniform1i(r.uFrame, 0)
	gl.BindVertexArray(r.vao)
	gl.DrawArrays(gl.TRIANGLES, 0, 3)
	gl.BindVertexArray(0)
	gl.BindTexture(gl.TEXTURE_2D, 0)
}

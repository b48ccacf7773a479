package main

import (
	"github.com/go-gl/glfw/v3.3/glfw"

	"pcview/internal/camera"
)

// setupInput registers cursor, scroll, focus and key callbacks.
func (v *Viewer) setupInput() {
	v.window.SetCursorPosCallback(v.onCursor)
	v.window.SetScrollCallback(v.onScroll)
	v.window.SetFocusCallback(v.onFocus)
	v.window.SetKeyCallback(v.onKey)

	x, y := v.window.GetCursorPos()
	v.lastX, v.lastY = x, y
}

// processInput polls the held movement keys once per frame.
func (v *Viewer) processInput(dt float32) {
	w := v.window
	if w.GetKey(glfw.KeyEscape) == glfw.Press {
		w.SetShouldClose(true)
	}
	if v.opts.Test {
		return
	}

	held := func(key glfw.Key, dir camera.Movement) {
		if w.GetKey(key) == glfw.Press {
			v.cam.ProcessKeyboard(dir, dt)
		}
	}
	held(glfw.KeyQ, camera.Forward)
	held(glfw.KeyW, camera.Backward)
	held(glfw.KeyA, camera.Left)
	held(glfw.KeyS, camera.Right)
	held(glfw.KeyZ, camera.Up)
	held(glfw.KeyX, camera.Down)
	held(glfw.KeyJ, camera.YawMinus)
	held(glfw.KeyL, camera.YawPlus)
	held(glfw.KeyK, camera.PitchMinus)
	held(glfw.KeyI, camera.PitchPlus)
}

func (v *Viewer) onKey(w *glfw.Window, key glfw.Key, scancode int, action glfw.Action, mods glfw.ModifierKey) {
	if key == glfw.KeyV && action == glfw.Press {
		v.showStats = !v.showStats
	}
}

func (v *Viewer) onCursor(w *glfw.Window, xpos, ypos float64) {
	if !v.hasFocus || v.opts.Test {
		return
	}
	if v.firstMouse {
		v.lastX, v.lastY = xpos, ypos
		v.firstMouse = false
		return
	}
	dx := float32(xpos - v.lastX)
	dy := float32(v.lastY - ypos) // y grows downward on screen
	v.lastX, v.lastY = xpos, ypos
	v.cam.ProcessMouse(dx, dy)
}

func (v *Viewer) onScroll(w *glfw.Window, xoff, yoff float64) {
	v.cam.ProcessScroll(float32(yoff))
}

func (v *Viewer) onFocus(w *glfw.Window, focused bool) {
	v.hasFocus = focused
	v.firstMouse = true
	if focused {
		v.lastX, v.lastY = w.GetCursorPos()
	}
}

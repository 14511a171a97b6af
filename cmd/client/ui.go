package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/jroimartin/gocui"

	"github.com/Tyrowin/relaychat/internal/client"
)

type chatUI struct {
	gui        *gocui.Gui
	client     *client.Client
	msgView    string
	inputView  string
	statusView string
	status     string
}

func runUI(c *client.Client, addr, name string) error {
	g, err := gocui.NewGui(gocui.OutputNormal)
	if err != nil {
		return err
	}
	defer g.Close()

	ui := &chatUI{
		gui:        g,
		client:     c,
		msgView:    "messages",
		inputView:  "input",
		statusView: "status",
		status:     fmt.Sprintf("Connected to %s as %s | Ctrl-C: Quit", addr, name),
	}
	g.SetManagerFunc(ui.layout)

	if err := ui.keybindings(); err != nil {
		return err
	}

	go ui.receive()

	if err := g.MainLoop(); err != nil && !errors.Is(err, gocui.ErrQuit) {
		return err
	}
	return nil
}

func (ui *chatUI) layout(g *gocui.Gui) error {
	maxX, maxY := g.Size()
	msgHeight := maxY - 6

	if v, err := g.SetView(ui.msgView, 0, 0, maxX-1, msgHeight); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Messages"
		v.Wrap = true
		v.Autoscroll = true
	}

	if v, err := g.SetView(ui.statusView, 0, msgHeight+1, maxX-1, msgHeight+3); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Status"
		fmt.Fprint(v, ui.status)
	}

	if v, err := g.SetView(ui.inputView, 0, msgHeight+3, maxX-1, maxY-1); err != nil {
		if !errors.Is(err, gocui.ErrUnknownView) {
			return err
		}
		v.Title = "Input"
		v.Editable = true
		v.Wrap = true

		if _, err := g.SetCurrentView(ui.inputView); err != nil {
			return err
		}
	}

	return nil
}

func (ui *chatUI) keybindings() error {
	if err := ui.gui.SetKeybinding("", gocui.KeyCtrlC, gocui.ModNone,
		func(_ *gocui.Gui, _ *gocui.View) error {
			return gocui.ErrQuit
		}); err != nil {
		return err
	}

	return ui.gui.SetKeybinding(ui.inputView, gocui.KeyEnter, gocui.ModNone, ui.handleInput)
}

func (ui *chatUI) handleInput(_ *gocui.Gui, v *gocui.View) error {
	input := strings.TrimSpace(v.Buffer())
	v.Clear()
	if err := v.SetCursor(0, 0); err != nil {
		return err
	}
	if input == "" {
		return nil
	}

	if err := ui.client.Send(input); err != nil {
		ui.setStatus("Send failed: " + err.Error())
	}
	return nil
}

// receive appends server frames to the message view until the connection ends.
func (ui *chatUI) receive() {
	for {
		p, err := ui.client.Next()
		if err != nil {
			if errors.Is(err, io.EOF) {
				ui.setStatus("Connection closed by server | Ctrl-C: Quit")
			} else {
				ui.setStatus("Connection lost: " + err.Error())
			}
			return
		}

		line := client.Format(p)
		ui.gui.Update(func(g *gocui.Gui) error {
			v, err := g.View(ui.msgView)
			if err != nil {
				return err
			}
			fmt.Fprintln(v, line)
			return nil
		})
	}
}

func (ui *chatUI) setStatus(status string) {
	ui.gui.Update(func(g *gocui.Gui) error {
		v, err := g.View(ui.statusView)
		if err != nil {
			return err
		}
		v.Clear()
		fmt.Fprint(v, status)
		return nil
	})
}

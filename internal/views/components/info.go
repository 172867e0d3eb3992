package components

import (
	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/widget"
)

// InfoPanel shows the slice heading and the voxel readout.
type InfoPanel struct {
	container    *fyne.Container
	titleLabel   *widget.Label
	readoutLabel *widget.Label
}

// NewInfoPanel creates a new info panel component
func NewInfoPanel() *InfoPanel {
	ip := &InfoPanel{}
	ip.createComponents()
	ip.buildLayout()
	return ip
}

func (ip *InfoPanel) createComponents() {
	ip.titleLabel = widget.NewLabel("")
	ip.titleLabel.Alignment = fyne.TextAlignCenter
	ip.titleLabel.TextStyle = fyne.TextStyle{Bold: true}

	ip.readoutLabel = widget.NewLabel("")
	ip.readoutLabel.TextStyle = fyne.TextStyle{Monospace: true}
}

func (ip *InfoPanel) buildLayout() {
	ip.container = container.NewVBox(
		ip.titleLabel,
		widget.NewSeparator(),
		ip.readoutLabel,
	)
}

// SetTitle updates the slice heading
func (ip *InfoPanel) SetTitle(title string) {
	ip.titleLabel.SetText(title)
}

// SetReadout updates the voxel readout
func (ip *InfoPanel) SetReadout(text string) {
	ip.readoutLabel.SetText(text)
}

// GetContainer returns the main container
func (ip *InfoPanel) GetContainer() *fyne.Container {
	return ip.container
}

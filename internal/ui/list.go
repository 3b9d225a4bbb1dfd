package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/list"
)

var _ list.Item = queueItem{}

// queueItem wraps a [QueueItemView] to implement [list.Item].
type queueItem struct {
	item QueueItemView
}

func (i queueItem) FilterValue() string { return i.item.Title }
func (i queueItem) Title() string       { return i.item.Title }
func (i queueItem) Description() string {
	desc := i.item.Artist
	if i.item.Album != "" {
		desc = fmt.Sprintf("%s • %s", desc, i.item.Album)
	}
	return desc
}

//go:build dashboard

package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/rivo/tview"
)

// fetchJSON polls one of the edge's small JSON endpoints (/metrics,
// /health) and returns it as a flat key/value map for display.
func fetchJSON(url string) (map[string]interface{}, error) {
	resp, err := http.Get(url)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	var m map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return nil, err
	}
	return m, nil
}

func main() {
	app := tview.NewApplication()
	table := tview.NewTable().SetBorders(true)

	update := func() {
		rows := make(map[string]interface{})
		if m, err := fetchJSON("http://localhost:8080/metrics"); err == nil {
			for k, v := range m {
				rows[k] = v
			}
		}
		if h, err := fetchJSON("http://localhost:8080/health"); err == nil {
			for k, v := range h {
				rows[k] = v
			}
		}
		if len(rows) == 0 {
			return
		}
		app.QueueUpdateDraw(func() {
			table.Clear()
			table.SetCell(0, 0, tview.NewTableCell("metric").SetSelectable(false))
			table.SetCell(0, 1, tview.NewTableCell("value").SetSelectable(false))
			i := 1
			for k, v := range rows {
				table.SetCell(i, 0, tview.NewTableCell(k))
				table.SetCell(i, 1, tview.NewTableCell(fmt.Sprintf("%v", v)))
				i++
			}
		})
	}

	go func() {
		for {
			update()
			time.Sleep(time.Second)
		}
	}()

	if err := app.SetRoot(table, true).Run(); err != nil {
		panic(err)
	}
}

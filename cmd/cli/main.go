package main

import (
	"bufio"
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/hamed0406/uptimemonitor/internal/domain"
)

func main() {
	api := os.Getenv("API_BASE")
	if api == "" {
		api = "http://localhost:8080"
	}
	key := os.Getenv("API_KEY")

	reader := bufio.NewReader(os.Stdin)
	fmt.Print("Monitor name: ")
	name, _ := reader.ReadString('\n')
	name = strings.TrimSpace(name)

	fmt.Print("Enter a site URL to monitor (e.g., https://example.com): ")
	raw, _ := reader.ReadString('\n')
	raw = strings.TrimSpace(raw)
	if !strings.Contains(raw, "://") {
		raw = "https://" + raw
	}
	if !domain.IsValidHTTPURL(raw) {
		fmt.Println("Invalid URL.")
		return
	}
	if name == "" {
		name = raw
	}

	body, _ := json.Marshal(map[string]string{"name": name, "url": domain.NormalizeURL(raw)})
	req, _ := http.NewRequest(http.MethodPost, api+"/api/monitors", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if key != "" {
		req.Header.Set("X-API-Key", key)
	}
	client := &http.Client{Timeout: 15 * time.Second}
	resp, err := client.Do(req)
	if err != nil {
		fmt.Println("Error contacting API:", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		fmt.Println("API returned status:", resp.Status, strings.TrimSpace(string(msg)))
		return
	}
	var m domain.Monitor
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		fmt.Println("Added, but the response could not be read:", err)
		return
	}
	fmt.Printf("Added %q (%s). It will be checked on the next round; GET /api/monitors shows its stats.\n", m.Name, m.ID)
}

package main

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"
	"time"

	humanize "github.com/dustin/go-humanize"
)

// Cliente interactivo sobre la API del gateway. Sin estado propio:
// cada opción del menú es una request y un render.

type item struct {
	ID    int64
	Title string
}

type bookInfo struct {
	ID       int64   `json:"id"`
	Title    string  `json:"title"`
	Price    float64 `json:"price"`
	Quantity int64   `json:"quantity"`
	Topic    string  `json:"topic"`
}

type client struct {
	base string
	hc   *http.Client
}

func main() {
	base := getenv("GATEWAY_BASE_URL", "http://localhost:8082/api")
	c := &client{base: strings.TrimRight(base, "/"), hc: &http.Client{Timeout: 5 * time.Second}}

	fmt.Println("Welcome to Bazar.com")
	fmt.Println("Simple client for the catalog & order services.")
	fmt.Println()

	in := bufio.NewScanner(os.Stdin)
	for {
		fmt.Println("Select an option:")
		fmt.Println("  1) Search for books by topic")
		fmt.Println("  2) Get book info")
		fmt.Println("  3) Purchase a book")
		fmt.Println("  4) Exit")
		choice := prompt(in, "> ")

		switch choice {
		case "1":
			c.search(in)
		case "2":
			c.info(in)
		case "3":
			c.purchase(in)
		case "4":
			fmt.Println("Bye!")
			return
		default:
			fmt.Println("Invalid option, please try again.")
			fmt.Println()
		}
	}
}

func (c *client) search(in *bufio.Scanner) {
	topic := prompt(in, "Topic to search (e.g., distributed): ")
	u := c.base + "/search?" + url.Values{"topic": {topic}}.Encode()

	body, _, err := c.get(u)
	if err != nil {
		fmt.Printf("Error connecting to server: %v\n\n", err)
		return
	}

	var resp struct {
		Items json.RawMessage `json:"items"`
	}
	if err := json.Unmarshal(body, &resp); err != nil {
		fmt.Printf("Unexpected response: %s\n\n", truncate(string(body), 200))
		return
	}
	items := parseItems(resp.Items)
	if len(items) == 0 {
		fmt.Println("No books found for that topic.")
		fmt.Println()
		return
	}

	fmt.Println("Books found:")
	for _, it := range items {
		fmt.Printf("  #%2d  %s\n", it.ID, it.Title)
	}
	fmt.Println()
}

func (c *client) info(in *bufio.Scanner) {
	id, ok := promptID(in, "Book ID: ")
	if !ok {
		return
	}

	body, status, err := c.get(fmt.Sprintf("%s/info/%d", c.base, id))
	if err != nil {
		fmt.Printf("Error fetching info: %v\n\n", err)
		return
	}
	if status != http.StatusOK {
		fmt.Printf("Lookup failed: %s\n\n", truncate(string(body), 200))
		return
	}

	var b bookInfo
	if err := json.Unmarshal(body, &b); err != nil {
		fmt.Printf("Unexpected response: %s\n\n", truncate(string(body), 200))
		return
	}
	fmt.Println("Book info:")
	fmt.Printf("  Title:    %s\n", b.Title)
	fmt.Printf("  Topic:    %s\n", b.Topic)
	fmt.Printf("  Price:    $%s\n", humanize.CommafWithDigits(b.Price, 2))
	fmt.Printf("  In stock: %s\n", humanize.Comma(b.Quantity))
	fmt.Println()
}

func (c *client) purchase(in *bufio.Scanner) {
	id, ok := promptID(in, "Book ID to purchase: ")
	if !ok {
		return
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/buy/%d", c.base, id), nil)
	if err != nil {
		fmt.Printf("Error completing purchase: %v\n\n", err)
		return
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		fmt.Printf("Error completing purchase: %v\n\n", err)
		return
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var out struct {
		OK bool `json:"ok"`
	}
	if err := json.Unmarshal(body, &out); err == nil && out.OK {
		fmt.Printf("Bought book #%d successfully!\n\n", id)
		return
	}
	fmt.Printf("Purchase failed: %s\n\n", truncate(string(body), 200))
}

// parseItems acepta las dos formas históricas de "items": el mapa
// title->id del catálogo actual y la lista [{id,title}] del anterior.
func parseItems(raw json.RawMessage) []item {
	if len(raw) == 0 {
		return nil
	}

	var asMap map[string]int64
	if err := json.Unmarshal(raw, &asMap); err == nil {
		out := make([]item, 0, len(asMap))
		for title, id := range asMap {
			out = append(out, item{ID: id, Title: title})
		}
		sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
		return out
	}

	var asList []struct {
		ID    int64  `json:"id"`
		Title string `json:"title"`
	}
	if err := json.Unmarshal(raw, &asList); err == nil {
		out := make([]item, 0, len(asList))
		for _, it := range asList {
			out = append(out, item{ID: it.ID, Title: it.Title})
		}
		return out
	}
	return nil
}

func (c *client) get(target string) ([]byte, int, error) {
	resp, err := c.hc.Get(target)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}

func prompt(in *bufio.Scanner, label string) string {
	fmt.Print(label)
	if !in.Scan() {
		return ""
	}
	return strings.TrimSpace(in.Text())
}

func promptID(in *bufio.Scanner, label string) (int64, bool) {
	raw := prompt(in, label)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		fmt.Println("Invalid ID.")
		fmt.Println()
		return 0, false
	}
	return id, true
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

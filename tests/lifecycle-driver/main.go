package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math/rand"
	"net/http"
	"os/signal"
	"syscall"
	"time"
)

const baseURL = "http://localhost:8080"

var variants = []string{"variant-mug", "variant-shirt", "variant-poster", "variant-sticker"}

type orderResponse struct {
	ID    string `json:"id"`
	Total string `json:"total"`
	Items []struct {
		ID string `json:"id"`
	} `json:"items"`
}

type fulfillmentResponse struct {
	ID string `json:"id"`
}

type transactionResponse struct {
	ID string `json:"id"`
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	ticker := time.NewTicker(3 * time.Second)
	for {
		select {
		case <-ticker.C:
			if err := driveOrder(); err != nil {
				log.Println("lifecycle failed:", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

// driveOrder прогоняет случайный заказ по полному циклу:
// создание -> отправка -> оплата -> отгрузка -> возврат части.
func driveOrder() error {
	order, err := createOrder()
	if err != nil {
		return err
	}
	log.Println("order created", order.ID, "total", order.Total)

	if err := post("/orders/"+order.ID+"/submit", nil, nil); err != nil {
		return err
	}

	var transaction transactionResponse
	if err := post("/orders/"+order.ID+"/payments", map[string]any{"method": "card"}, &transaction); err != nil {
		return err
	}
	if err := post("/payments/"+transaction.ID+"/capture", nil, nil); err != nil {
		return err
	}

	var fulfillment fulfillmentResponse
	items := []map[string]any{}
	for _, it := range order.Items {
		items = append(items, map[string]any{"line_item_id": it.ID, "quantity": 1})
	}
	if err := post("/orders/"+order.ID+"/fulfillments", map[string]any{"items": items, "carrier": "dhl"}, &fulfillment); err != nil {
		return err
	}
	if err := post("/fulfillments/"+fulfillment.ID+"/ship", map[string]any{"tracking_number": "TRACK" + randomString(6)}, nil); err != nil {
		return err
	}

	if rand.Intn(2) == 0 {
		if err := post("/orders/"+order.ID+"/refunds", map[string]any{"amount": "1.00", "reason": "damaged"}, nil); err != nil {
			return err
		}
		log.Println("refund created for", order.ID)
	}
	return nil
}

func createOrder() (orderResponse, error) {
	items := []map[string]any{}
	n := 1 + rand.Intn(3)
	for i := 0; i < n; i++ {
		items = append(items, map[string]any{
			"variant_id": variants[rand.Intn(len(variants))],
			"quantity":   1 + rand.Intn(3),
		})
	}

	body := map[string]any{
		"customer_id":          "customer_" + randomString(5),
		"currency":             "USD",
		"email":                fmt.Sprintf("user%d@example.com", rand.Intn(1000)),
		"shipping_country":     "US",
		"shipping_postal_code": fmt.Sprintf("%05d", rand.Intn(99999)),
		"items":                items,
	}

	var order orderResponse
	if err := post("/orders", body, &order); err != nil {
		return orderResponse{}, err
	}
	return order, nil
}

func post(path string, body any, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}

	req, err := http.NewRequest(http.MethodPost, baseURL+path, &buf)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Actor-ID", "lifecycle-driver")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("POST %s -> %s", path, resp.Status)
	}
	if out != nil {
		return json.NewDecoder(resp.Body).Decode(out)
	}
	return nil
}

func randomString(n int) string {
	letters := []rune("abcdefghijklmnopqrstuvwxyzABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789")
	b := make([]rune, n)
	for i := range b {
		b[i] = letters[rand.Intn(len(letters))]
	}
	return string(b)
}

package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"os"
	"sync"
	"time"

	"github.com/google/uuid"
)

var URL, _ = os.LookupEnv("API_URL")
var PORT, _ = os.LookupEnv("API_PORT")
var MerchantID, _ = os.LookupEnv("MERCHANT_ID")
var apiURL = fmt.Sprintf("http://%s:%s/api/v1/merchants/%s", URL, PORT, MerchantID)
var paymentsURL = apiURL + "/payments"
var balanceURL = apiURL + "/balance"

const (
	workers  = 10
	duration = 30 * time.Second
)

var currencies = []string{"GRIN", "EUR", "USD", "BTC"}

type Amount struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type Payment struct {
	ExternalID    string `json:"external_id"`
	Amount        Amount `json:"amount"`
	Confirmations int64  `json:"confirmations"`
	Message       string `json:"message"`
}

type Status struct {
	Status              string `json:"status"`
	SecondsUntilExpired *int64 `json:"seconds_until_expired"`
}

// Creates payments from several workers and checks that each new payment
// reports a status with a running TTL. Needs a running server and a
// registered merchant in MERCHANT_ID.
func main() {
	if MerchantID == "" {
		fmt.Println("MERCHANT_ID is required")
		os.Exit(1)
	}

	var wg sync.WaitGroup
	var mu sync.Mutex
	counts := map[int]int{}

	wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func() {
			defer wg.Done()
			start := time.Now()
			for time.Since(start) < duration {
				code, id, err := createPayment()
				if err != nil {
					fmt.Println("Error creating payment:", err)
				}
				mu.Lock()
				counts[code]++
				mu.Unlock()

				if id != "" {
					checkStatus(id)
				}
				time.Sleep(time.Duration(rand.Intn(1000)) * time.Millisecond)
			}
		}()
	}

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(5 * time.Second)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				printBalance()
			case <-done:
				return
			}
		}
	}()

	wg.Wait()
	close(done)
	printBalance()
	fmt.Printf("Responses by status code: %v\n", counts)
}

func createPayment() (int, string, error) {
	data, err := json.Marshal(newPayment())
	if err != nil {
		return 0, "", err
	}

	resp, err := http.Post(paymentsURL, "application/json", bytes.NewBuffer(data))
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		return resp.StatusCode, "", nil
	}

	var created struct {
		ID string `json:"id"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&created); err != nil {
		return resp.StatusCode, "", fmt.Errorf("decode payment: %w", err)
	}
	return resp.StatusCode, created.ID, nil
}

func newPayment() Payment {
	currency := currencies[rand.Intn(len(currencies))]
	amount := rand.Int63n(10_000) + 1
	if currency == "GRIN" {
		amount *= 1_000_000
	}

	// some payments are sent without an external id and must be refused
	externalID := uuid.New().String()
	if rand.Float64() < 0.05 {
		externalID = ""
	}

	return Payment{
		ExternalID:    externalID,
		Amount:        Amount{Amount: amount, Currency: currency},
		Confirmations: int64(rand.Intn(10) + 1),
		Message:       "smoke test",
	}
}

func checkStatus(id string) {
	resp, err := http.Get(paymentsURL + "/" + id + "/status")
	if err != nil {
		fmt.Println("Error getting status:", err)
		return
	}
	defer resp.Body.Close()

	var status Status
	if err = json.NewDecoder(resp.Body).Decode(&status); err != nil {
		fmt.Println("Error decoding status:", err)
		return
	}
	if status.Status != "new" || status.SecondsUntilExpired == nil {
		fmt.Printf("Unexpected status for %s: %+v\n", id, status)
	}
}

func printBalance() {
	resp, err := http.Get(balanceURL)
	if err != nil {
		fmt.Println("Error getting balance:", err)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		fmt.Println("Wrong status code:", resp.StatusCode)
		return
	}

	var balanceResponse struct {
		Balance     int64  `json:"balance"`
		BalanceGrin string `json:"balance_grin"`
	}
	if err = json.NewDecoder(resp.Body).Decode(&balanceResponse); err != nil {
		fmt.Println("Error decoding balance:", err)
		return
	}

	fmt.Printf("Merchant balance: %s (%d nanogrin)\n", balanceResponse.BalanceGrin, balanceResponse.Balance)
}

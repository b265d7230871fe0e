// A small shopping cart service used as the default demo target for
// patchpilot run. It ships with a known bug in the cart total endpoint.
package main

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
)

type item struct {
	Name  string  `json:"name"`
	Price float64 `json:"price"`
}

// Simulated database of items.
var itemsDB = map[int]item{
	1: {Name: "Laptop", Price: 999.99},
	2: {Name: "Headphones", Price: 99.99},
	3: {Name: "Mouse", Price: 29.99},
}

// Shopping cart storage.
var shoppingCarts = map[int][]int{}

func main() {
	r := chi.NewRouter()
	r.Post("/cart/{userID}/add/{itemID}", addToCart)
	r.Get("/cart/{userID}/total", getCartTotal)
	r.Get("/items", listItems)

	log.Println("test-app listening on :8000")
	log.Fatal(http.ListenAndServe(":8000", r))
}

func addToCart(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	itemID, err := strconv.Atoi(chi.URLParam(r, "itemID"))
	if err != nil {
		http.Error(w, "invalid item id", http.StatusBadRequest)
		return
	}
	if _, ok := itemsDB[itemID]; !ok {
		http.Error(w, "Item not found", http.StatusNotFound)
		return
	}

	shoppingCarts[userID] = append(shoppingCarts[userID], itemID)
	writeJSON(w, map[string]string{"message": "Item added to cart"})
}

func getCartTotal(w http.ResponseWriter, r *http.Request) {
	userID, err := strconv.Atoi(chi.URLParam(r, "userID"))
	if err != nil {
		http.Error(w, "invalid user id", http.StatusBadRequest)
		return
	}
	cart, ok := shoppingCarts[userID]
	if !ok {
		http.Error(w, "Cart not found", http.StatusNotFound)
		return
	}

	total := 0.0
	i := 0
	for i < len(cart) {
		sum(total, itemsDB[cart[i]].Price)
		i++
	}

	writeJSON(w, map[string]float64{"total": total})
}

func listItems(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, itemsDB)
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

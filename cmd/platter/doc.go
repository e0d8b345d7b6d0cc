// Command platter is the terminal client for the food-ordering backend.
//
// Install once:
//
//	go install github.com/shashiranjanraj/platter/cmd/platter@latest
//
// Then:
//
//	platter login --email amy@example.com --as customer
//	platter restaurants
//	platter menu 3
//	platter checkout --restaurant 3 --item 12:2
//	platter orders               # the list for whoever is signed in
//	platter watch                # poll and print changes
//	platter accept 42            # couriers
//	platter confirm 42           # restaurants
//	platter earnings
//	platter export --format csv
//	platter serve                # local dashboard on DASHBOARD_PORT
//	platter serve --routes       # list dashboard routes
//
// The session is kept by SESSION_DRIVER (file by default, see
// SESSION_PATH and SESSION_KEY) so every command runs as the same user.
package main

package main

import (
	"fmt"
	"os"
	"time"

	"github.com/pfrederiksen/vietnam-holidays/internal/calendar"
	"github.com/pfrederiksen/vietnam-holidays/internal/holiday"
)

func main() {
	// Sample rows covering each date text form
	entries := []holiday.RawEntry{
		{DateText: "1月1日", Name: "元旦", Note: "公历新年"},
		{DateText: "2月14日–2月22日", Name: "春节", Note: "农历新年假期"},
		{DateText: "4月30日", Name: "南方解放日"},
		{DateText: "9月1日–2日", Name: "国庆节"},
	}

	year := time.Now().Year()
	records := holiday.BuildRecords(entries, year, "https://holidays-calendar.net/calendar_zh_cn/vietnam_zh_cn.html")
	icsContent := calendar.GenerateFeed(calendar.DefaultMeta(), records, time.Now())

	// Write to file (owner read/write only)
	filename := "test-vietnam-holidays.ics"
	if err := os.WriteFile(filename, []byte(icsContent), 0600); err != nil {
		fmt.Fprintf(os.Stderr, "Error writing file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✅ Generated calendar file with %d holidays: %s\n\n", len(records), filename)
	fmt.Println("Test it by:")
	fmt.Println("1. Open the .ics file with your calendar app (double-click)")
	fmt.Println("2. Or import it into Google Calendar, Apple Calendar, or Outlook")
	fmt.Println("3. Check that 春节 spans 9 days and 国庆节 spans 2 days as all-day events")
	fmt.Println("\nFile contents preview:")
	fmt.Println("---")
	fmt.Println(icsContent)
}

package main

import (
	"encoding/json"
	"flag"
	"log"
	"os"

	"github.com/robotalks/mcplink/pkg/tap/mqtt"
)

var (
	mqttURL = "mqtt://localhost:1883/mcplink/"
)

func init() {
	if val := os.Getenv("MCPLINK_MQTT_URL"); val != "" {
		mqttURL = val
	}
	flag.StringVar(&mqttURL, "mqtt", mqttURL, "MQTT broker URL.")
}

func main() {
	flag.Parse()
	log.SetFlags(log.Lmicroseconds)

	q, err := mqtt.NewQueueFromURL(mqttURL)
	if err != nil {
		log.Fatalln(err)
	}
	if token := q.Connect(); token.Wait() && token.Error() != nil {
		log.Fatalln(token.Error())
	}
	defer q.Close()

	q.Sub("+/"+mqtt.EventsTopic, mqtt.Handler(func(topic string, payload []byte) {
		device, _ := mqtt.DeviceFromTopic(topic)
		var msg mqtt.EventMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			log.Printf("%s: bad message: %v", topic, err)
			return
		}
		switch {
		case msg.Err != "":
			log.Printf("%s: [%s] %s %s: %s", device, msg.Kind, msg.Data, msg.Code, msg.Err)
		case msg.Code != "":
			log.Printf("%s: [%s] %s %s", device, msg.Kind, msg.Data, msg.Code)
		default:
			log.Printf("%s: [%s] %s", device, msg.Kind, msg.Data)
		}
	}))
	<-(chan struct{})(nil)
}

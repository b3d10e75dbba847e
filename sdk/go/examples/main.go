package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"

	"DeFi-Agent/pkg/dto"
	"DeFi-Agent/sdk/go/defiagent"
)

// 以访客身份登录，列出智能体与最近的会话，并把会话状态保存到本地文件。
func main() {
	env, err := defiagent.LoadEnv()
	if err != nil {
		log.Fatal(err)
	}
	if env.APIBaseURL == "" {
		env.APIBaseURL = "http://localhost:3000"
	}

	client, err := defiagent.NewClient(env.APIBaseURL, nil)
	if err != nil {
		log.Fatal(err)
	}
	kv := defiagent.NewFileKV(filepath.Join(os.TempDir(), "defiagent", "state.json"))
	authStore, err := defiagent.NewAuthStore(kv)
	if err != nil {
		log.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if state := authStore.State(); state.IsAuthenticated {
		client.SetAccessToken(state.AccessToken)
	} else {
		session, err := client.Guest(ctx)
		if err != nil {
			log.Fatal(err)
		}
		if err := authStore.SetSession(session); err != nil {
			log.Fatal(err)
		}
	}

	agents, err := client.ListAgents(ctx)
	if err != nil {
		log.Fatal(err)
	}
	for _, a := range agents {
		fmt.Printf("agent %s (%s): %v\n", a.ID, a.Type, a.SupportedChains)
	}

	page, err := client.ListHistory(ctx, dto.HistoryQuery{Limit: 5})
	if err != nil {
		log.Fatal(err)
	}
	for _, c := range page.Chats {
		thread := defiagent.ThreadFromChat(c, nil)
		fmt.Printf("thread %s %q status=%s\n", thread.ID, thread.Metadata.Title, thread.Status)
	}
}

// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Keystead Contributors

//go:build integration

package integration

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"golang.org/x/crypto/bcrypt"

	"github.com/keystead/keystead/internal/auth"
	authpg "github.com/keystead/keystead/internal/auth/postgres"
	"github.com/keystead/keystead/internal/web"
)

var _ = Describe("Account flows over PostgreSQL", func() {
	var (
		service *auth.Service
		server  *httptest.Server
		client  *http.Client
	)

	BeforeEach(func() {
		_, err := pool.Exec(suiteCtx, `TRUNCATE accounts CASCADE`)
		Expect(err).NotTo(HaveOccurred())

		sessions, err := auth.NewSessionStore(authpg.NewSessionRepository(pool), time.Hour)
		Expect(err).NotTo(HaveOccurred())
		hasher, err := auth.NewHasher(auth.AlgorithmBcrypt, bcrypt.MinCost)
		Expect(err).NotTo(HaveOccurred())
		service, err = auth.NewService(authpg.NewAccountRepository(pool), sessions, hasher)
		Expect(err).NotTo(HaveOccurred())

		handler, err := web.NewHandler(service, sessions, web.CookieOptions{Name: "keystead_session"}, nil)
		Expect(err).NotTo(HaveOccurred())
		server = httptest.NewServer(handler.Routes())

		jar, err := cookiejar.New(nil)
		Expect(err).NotTo(HaveOccurred())
		client = &http.Client{
			Jar: jar,
			CheckRedirect: func(*http.Request, []*http.Request) error {
				return http.ErrUseLastResponse
			},
		}
	})

	AfterEach(func() {
		server.Close()
	})

	post := func(path string, form url.Values) (*http.Response, string) {
		resp, err := client.PostForm(server.URL+path, form)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, string(body)
	}

	get := func(path string) (*http.Response, string) {
		resp, err := client.Get(server.URL + path)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		return resp, string(body)
	}

	It("registers, logs in, shows the profile and logs out", func() {
		resp, _ := post("/signup", url.Values{"username": {"ann"}, "email": {"ann@x.com"}, "password": {"Abc123"}})
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))

		var secret string
		Expect(pool.QueryRow(suiteCtx, `SELECT password_hash FROM accounts WHERE email = 'ann@x.com'`).Scan(&secret)).To(Succeed())
		Expect(secret).NotTo(Equal("Abc123"))
		Expect(secret).To(HavePrefix("$2a$"))

		resp, _ = post("/login", url.Values{"email": {"ann@x.com"}, "password": {"wrong1A"}})
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))

		resp, _ = post("/login", url.Values{"email": {"ann@x.com"}, "password": {"Abc123"}})
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal("/myprofile"))

		resp, body := get("/myprofile")
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		Expect(body).To(ContainSubstring("ann@x.com"))

		resp, _ = post("/logout", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusSeeOther))
		Expect(resp.Header.Get("Location")).To(Equal("/"))

		var live int
		Expect(pool.QueryRow(suiteCtx, `SELECT count(*) FROM sessions`).Scan(&live)).To(Succeed())
		Expect(live).To(BeZero())

		resp, _ = get("/myprofile")
		Expect(resp.Header.Get("Location")).To(Equal("/login"))
	})

	It("keeps exactly one account when the same email registers concurrently", func() {
		const attempts = 8
		var (
			wg    sync.WaitGroup
			mu    sync.Mutex
			kinds = map[auth.Kind]int{}
		)
		for i := range attempts {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				defer GinkgoRecover()
				_, err := service.Register(suiteCtx, auth.RegistrationInput{
					Username: "racer" + string(rune('a'+i)),
					Email:    "race@x.com",
					Password: "Abc123",
				})
				mu.Lock()
				defer mu.Unlock()
				kinds[auth.KindOf(err)]++
			}(i)
		}
		wg.Wait()

		Expect(kinds[""]).To(Equal(1))
		Expect(kinds[auth.KindDuplicateAccount]).To(Equal(attempts - 1))

		var count int
		Expect(pool.QueryRow(suiteCtx, `SELECT count(*) FROM accounts WHERE email = 'race@x.com'`).Scan(&count)).To(Succeed())
		Expect(count).To(Equal(1))
	})

	It("purges expired sessions", func() {
		account, err := auth.NewAccount("ann", "ann@x.com", "hash")
		Expect(err).NotTo(HaveOccurred())
		Expect(authpg.NewAccountRepository(pool).Create(suiteCtx, account)).To(Succeed())

		clock := time.Now()
		repo := authpg.NewSessionRepository(pool)
		store, err := auth.NewSessionStore(repo, time.Minute, auth.WithSessionClock(func() time.Time { return clock }))
		Expect(err).NotTo(HaveOccurred())

		sess := auth.NewAnonymousSession()
		Expect(store.Attach(suiteCtx, sess, account.Identity())).To(Succeed())

		clock = clock.Add(2 * time.Minute)
		loaded, err := store.Load(suiteCtx, sess.Token)
		Expect(err).NotTo(HaveOccurred())
		Expect(loaded.IsAnonymous()).To(BeTrue())

		Expect(auth.NewSessionSweeper(store, time.Minute, nil).RunOnce(suiteCtx)).To(Succeed())
		var live int
		Expect(pool.QueryRow(suiteCtx, `SELECT count(*) FROM sessions`).Scan(&live)).To(Succeed())
		Expect(live).To(BeZero())
	})
})

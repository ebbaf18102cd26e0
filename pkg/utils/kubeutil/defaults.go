package kubeutil

import (
	"log"
	"os"
	"path/filepath"

	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/rest"
	"k8s.io/client-go/tools/clientcmd"
	"k8s.io/client-go/util/homedir"
)

// ConnectToK8s detects a *kubernetes.Clientset.
//
// *CAUTION*: If no configs are found & the process is not running in cluster,
// IT WILL CAUSE PANIC.
//
// It searches kubeconfig from
//
// - `~/.kube/config`
//
// - environmental variable `KUBECONFIG`
//
// - explicit path passed as kubeconfig (most prior; pass "" to skip)
//
// When no files are found from above, it tries to use in-cluster config.
func ConnectToK8s(kubeconfig string) *kubernetes.Clientset {
	if kubeconfig == "" {
		// priority 1 (least): ~/.kube/config
		if home := homedir.HomeDir(); home != "" {
			kubeconfig = filepath.Join(home, ".kube", "config")
		}

		// priority 2: envvar KUBECONFIG
		if k := os.Getenv("KUBECONFIG"); k != "" {
			kubeconfig = k
		}
	}

	if kubeconfig != "" {
		stat, err := os.Stat(kubeconfig)
		if os.IsNotExist(err) || (err == nil && stat.IsDir()) {
			kubeconfig = ""
		}
	}

	var config *rest.Config
	var err error
	if kubeconfig == "" {
		// fallback: try in-cluster
		config, err = rest.InClusterConfig()
	} else {
		config, err = clientcmd.BuildConfigFromFlags("", kubeconfig)
	}

	if err != nil {
		log.Fatalln(err) // PANIC!
	}

	clientset, err := kubernetes.NewForConfig(config)
	if err != nil {
		log.Fatalln(err) // PANIC!
	}
	return clientset
}
